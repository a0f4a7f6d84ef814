// Package storage provides the durable object store the staged carrier
// reads fax documents from. The core treats it as an opaque put/head/delete
// capability returning public URLs.
package storage

import (
	"context"
	"errors"
	"time"
)

type ObjectInfo struct {
	Key           string
	ContentType   string
	ContentLength int64
	LastModified  time.Time
}

type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) (bool, error)
}

var ErrUploadFailed = errors.New("storage_upload_failed")
