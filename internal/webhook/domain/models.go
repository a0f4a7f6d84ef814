package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Category partitions inbound events by the side effect they drive.
type Category string

const (
	CategoryDeliveryStatus Category = "delivery_status"
	CategoryPurchase       Category = "purchase"
	CategoryCancellation   Category = "cancellation"
	CategoryTransfer       Category = "transfer"
	CategoryIgnored        Category = "ignored"
)

// Result is the final disposition of one ingested event.
type Result string

const (
	ResultProcessed Result = "processed"
	ResultIgnored   Result = "ignored"
	ResultError     Result = "error"
)

// WebhookEvent is the immutable audit row written for every ingested
// event. (provider, event_id) is unique when the sender assigns an id;
// events without one are never deduplicated.
type WebhookEvent struct {
	ID           snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Provider     string         `gorm:"size:32;uniqueIndex:idx_webhook_events_provider_event,where:event_id <> ''" json:"provider"`
	EventID      string         `gorm:"size:128;uniqueIndex:idx_webhook_events_provider_event,where:event_id <> ''" json:"event_id"`
	Category     Category       `gorm:"size:32" json:"category"`
	Payload      datatypes.JSON `json:"payload,omitempty"`
	Result       Result         `gorm:"size:16" json:"result"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ReceivedAt   time.Time      `json:"received_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Event is the provider-agnostic shape an adapter parses a raw payload
// into. Only the fields relevant to the event's category are populated.
type Event struct {
	Provider string
	EventID  string
	Category Category

	// Delivery status events.
	ExternalID string
	RawStatus  string

	// Billing events.
	EventType   string
	UserID      string
	ProductID   string
	PurchasedAt time.Time

	// Transfer events.
	TransferredFrom []string
	TransferredTo   []string
}
