package domain

// Status is the carrier-agnostic fax lifecycle state. Carrier-specific raw
// statuses are normalized into this closed set; the raw string is kept on
// the record for audit.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSending    Status = "sending"
	StatusDelivered  Status = "delivered"
	StatusReceiving  Status = "receiving"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no_answer"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the status ends the outbound lifecycle.
// completed_at is stamped on the first transition into a terminal status
// and never moves afterwards.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusBusy, StatusNoAnswer, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }
