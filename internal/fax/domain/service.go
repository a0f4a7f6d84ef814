package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Send(ctx context.Context, req SendRequest) (*FaxRecord, error)
	GetByID(ctx context.Context, id string) (*FaxRecord, error)
	List(ctx context.Context, req ListRequest) ([]*FaxRecord, error)
}

type ListRequest struct {
	Limit int `json:"limit"`
}

// Repository is the narrow row-store contract the saga, ingester and sweep
// depend on.
type Repository interface {
	Create(ctx context.Context, record *FaxRecord) error
	Update(ctx context.Context, id snowflake.ID, updates map[string]any) error
	FindByID(ctx context.Context, id snowflake.ID) (*FaxRecord, error)
	FindByExternalID(ctx context.Context, provider, externalID string) (*FaxRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*FaxRecord, error)

	// ApplyStatus updates status and raw provider status; completedAt is
	// written only when the column is still NULL (set-once semantics for
	// out-of-order terminal webhooks).
	ApplyStatus(ctx context.Context, id snowflake.ID, status Status, rawStatus string, now time.Time, completedAt *time.Time) error

	// FindStalled returns non-terminal records last touched before cutoff.
	FindStalled(ctx context.Context, cutoff time.Time, limit int) ([]*FaxRecord, error)
}

var (
	ErrNoRecipients       = errors.New("invalid_recipients")
	ErrNoAttachments      = errors.New("invalid_attachments")
	ErrAttachmentTooLarge = errors.New("invalid_attachment_size")
	ErrMissingUser        = errors.New("invalid_user")
	ErrNotFound           = errors.New("fax_not_found")
)
