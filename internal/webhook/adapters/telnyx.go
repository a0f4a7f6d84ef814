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

const telnyxSignatureHeader = "X-Telnyx-Signature"

type telnyxAdapter struct {
	secret string
}

func NewTelnyxAdapter(cfg config.TelnyxConfig) domain.Adapter {
	return &telnyxAdapter{secret: strings.TrimSpace(cfg.WebhookSecret)}
}

func (a *telnyxAdapter) Provider() string { return "telnyx" }

func (a *telnyxAdapter) Verify(headers http.Header, payload []byte) error {
	if a.secret == "" {
		return domain.ErrInvalidSignature
	}
	sig := strings.TrimSpace(headers.Get(telnyxSignatureHeader))
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

type telnyxWebhookPayload struct {
	Data struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Payload   struct {
			FaxID  string `json:"fax_id"`
			Status string `json:"status"`
		} `json:"payload"`
	} `json:"data"`
}

func (a *telnyxAdapter) Parse(payload []byte) (*domain.Event, error) {
	var body telnyxWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if body.Data.Payload.FaxID == "" {
		return nil, domain.ErrInvalidPayload
	}

	status := body.Data.Payload.Status
	if status == "" {
		// Some event types carry the status only in the event name,
		// e.g. "fax.delivered" or "fax.failed".
		if i := strings.LastIndex(body.Data.EventType, "."); i >= 0 {
			status = body.Data.EventType[i+1:]
		}
	}

	return &domain.Event{
		Provider:   a.Provider(),
		EventID:    body.Data.ID,
		Category:   domain.CategoryDeliveryStatus,
		ExternalID: body.Data.Payload.FaxID,
		RawStatus:  status,
	}, nil
}
