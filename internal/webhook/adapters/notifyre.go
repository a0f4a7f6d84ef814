package adapters

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/irensaltali/fax-app-backend/internal/config"
	"github.com/irensaltali/fax-app-backend/internal/webhook/domain"
)

const notifyreSignatureHeader = "X-Notifyre-Signature"

type notifyreAdapter struct {
	secret string
}

func NewNotifyreAdapter(cfg config.NotifyreConfig) domain.Adapter {
	return &notifyreAdapter{secret: strings.TrimSpace(cfg.WebhookSecret)}
}

func (a *notifyreAdapter) Provider() string { return "notifyre" }

func (a *notifyreAdapter) Verify(headers http.Header, payload []byte) error {
	if a.secret == "" {
		return domain.ErrInvalidSignature
	}
	sig := strings.TrimSpace(headers.Get(notifyreSignatureHeader))
	if sig == "" {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(a.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type notifyreWebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		ID       string `json:"id"`
		FaxID    string `json:"faxID"`
		Status   string `json:"status"`
		EventID  string `json:"eventID"`
		Friendly string `json:"friendlyID"`
	} `json:"payload"`
}

func (a *notifyreAdapter) Parse(payload []byte) (*domain.Event, error) {
	var body notifyreWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	externalID := body.Payload.FaxID
	if externalID == "" {
		externalID = body.Payload.ID
	}
	if externalID == "" {
		return nil, domain.ErrInvalidPayload
	}

	return &domain.Event{
		Provider:   a.Provider(),
		EventID:    body.Payload.EventID,
		Category:   domain.CategoryDeliveryStatus,
		ExternalID: externalID,
		RawStatus:  body.Payload.Status,
	}, nil
}
