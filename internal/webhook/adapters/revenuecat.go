package adapters

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/irensaltali/fax-app-backend/internal/config"
	"github.com/irensaltali/fax-app-backend/internal/webhook/domain"
)

type revenueCatAdapter struct {
	secret string
}

func NewRevenueCatAdapter(cfg config.RevenueCatConfig) domain.Adapter {
	return &revenueCatAdapter{secret: strings.TrimSpace(cfg.WebhookSecret)}
}

func (a *revenueCatAdapter) Provider() string { return "revenuecat" }

// Verify compares the Authorization header against the configured shared
// secret; the sender replays the value verbatim on every delivery.
func (a *revenueCatAdapter) Verify(headers http.Header, payload []byte) error {
	if a.secret == "" {
		return domain.ErrInvalidSignature
	}
	auth := strings.TrimSpace(headers.Get("Authorization"))
	if auth == "" || !hmac.Equal([]byte(auth), []byte(a.secret)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type revenueCatWebhookPayload struct {
	Event struct {
		ID              string   `json:"id"`
		Type            string   `json:"type"`
		AppUserID       string   `json:"app_user_id"`
		ProductID       string   `json:"product_id"`
		PurchasedAtMS   int64    `json:"purchased_at_ms"`
		TransferredFrom []string `json:"transferred_from"`
		TransferredTo   []string `json:"transferred_to"`
	} `json:"event"`
}

func (a *revenueCatAdapter) Parse(payload []byte) (*domain.Event, error) {
	var body revenueCatWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if body.Event.Type == "" {
		return nil, domain.ErrInvalidPayload
	}

	event := &domain.Event{
		Provider:        a.Provider(),
		EventID:         body.Event.ID,
		EventType:       body.Event.Type,
		UserID:          body.Event.AppUserID,
		ProductID:       body.Event.ProductID,
		TransferredFrom: body.Event.TransferredFrom,
		TransferredTo:   body.Event.TransferredTo,
	}
	if body.Event.PurchasedAtMS > 0 {
		event.PurchasedAt = time.UnixMilli(body.Event.PurchasedAtMS).UTC()
	}

	switch strings.ToUpper(body.Event.Type) {
	case "INITIAL_PURCHASE", "RENEWAL", "NON_RENEWING_PURCHASE":
		event.Category = domain.CategoryPurchase
	case "CANCELLATION", "EXPIRATION":
		event.Category = domain.CategoryCancellation
	case "TRANSFER":
		event.Category = domain.CategoryTransfer
	default:
		event.Category = domain.CategoryIgnored
	}
	return event, nil
}
