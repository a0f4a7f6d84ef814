// Package domain contains the fax lifecycle models shared by the send saga,
// the webhook ingester and the reconcile sweep.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FaxRecord is the persisted state of one fax. Rows are never deleted; the
// webhook ingester and reconcile sweep only append or update.
type FaxRecord struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID         *string           `json:"user_id" gorm:"type:text;index"`
	Provider       string            `json:"provider" gorm:"type:text;not null"`
	Status         Status            `json:"status" gorm:"type:text;not null;index"`
	ProviderStatus string            `json:"provider_status" gorm:"type:text"`
	Recipients     datatypes.JSON    `json:"recipients" gorm:"type:jsonb"`
	PageCount      int               `json:"page_count"`
	Cost           float64           `json:"cost"`
	ExternalID     string            `json:"external_id" gorm:"type:text;index"`
	MediaURLs      datatypes.JSON    `json:"media_urls" gorm:"type:jsonb"`
	ErrorMessage   string            `json:"error_message" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null"`
	SentAt         *time.Time        `json:"sent_at"`
	CompletedAt    *time.Time        `json:"completed_at"`
}

func (FaxRecord) TableName() string { return "fax_records" }

// MaxAttachmentSize is the per-document upload ceiling.
const MaxAttachmentSize = 100 << 20

// Attachment is one binary document of a send request.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// SendRequest is the transient submission input. It is never persisted.
type SendRequest struct {
	Recipients  []string       `json:"recipients"`
	Attachments []Attachment   `json:"attachments"`
	SenderID    string         `json:"sender_id"`
	Subject     string         `json:"subject"`
	Message     string         `json:"message"`
	Provider    string         `json:"provider"`
	PageCount   int            `json:"page_count"`
	Metadata    map[string]any `json:"metadata"`
}

// Pages returns the page estimate used for the credit check. Callers that
// know the real count pass it; otherwise one page per attachment.
func (r SendRequest) Pages() int {
	if r.PageCount > 0 {
		return r.PageCount
	}
	return len(r.Attachments)
}
