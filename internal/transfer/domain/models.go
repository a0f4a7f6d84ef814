package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type TransferStatus string

const (
	TransferInProgress TransferStatus = "in_progress"
	TransferCompleted  TransferStatus = "completed"
	TransferFailed     TransferStatus = "failed"
)

// TransferRecord captures one attempt to move a user's rows to another
// user. Append-only; one row per source/target pair per attempt.
type TransferRecord struct {
	ID               snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	FromUserID       string         `gorm:"size:128;index" json:"from_user_id"`
	ToUserID         string         `gorm:"size:128;index" json:"to_user_id"`
	Reason           string         `gorm:"size:64" json:"reason"`
	Status           TransferStatus `gorm:"size:16" json:"status"`
	GrantsMoved      int            `json:"grants_moved"`
	UsageEventsMoved int            `json:"usage_events_moved"`
	FaxRecordsMoved  int            `json:"fax_records_moved"`
	OldUserDeleted   bool           `json:"old_user_deleted"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

func (TransferRecord) TableName() string { return "transfer_records" }

type TransferRequest struct {
	FromUserIDs []string
	ToUserIDs   []string
	Reason      string
}

var (
	ErrInvalidTransfer = errors.New("invalid_transfer")
	ErrAnonymousTarget = errors.New("transfer_target_anonymous")
	ErrTargetNotFound  = errors.New("transfer_target_not_found")
)

type Service interface {
	// Transfer reassigns every row owned by each source user to the
	// target, one atomic reassign per source. The returned records
	// include failed attempts.
	Transfer(ctx context.Context, req TransferRequest) ([]*TransferRecord, error)
}
