// Package notifyre implements the direct carrier strategy. Documents travel
// inline as base64 in a nested recipients/documents structure; nothing is
// persisted until the carrier accepts the submission.
package notifyre

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "notifyre"
}

func (f *Factory) NewStrategy(cfg providers.FactoryConfig) (providers.Strategy, error) {
	nc := cfg.App.Notifyre
	if nc.APIKey == "" {
		return nil, providers.ErrProviderNotConfigured
	}

	return &Strategy{
		apiKey:           nc.APIKey,
		baseURL:          strings.TrimRight(nc.BaseURL, "/"),
		from:             cfg.App.SenderNumber,
		coverPageID:      nc.CoverPageID,
		includeCoverPage: nc.IncludeCoverPage,
		client:           &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (f *Factory) MapStatus(raw string) faxdomain.Status {
	return MapStatus(raw)
}

type Strategy struct {
	apiKey           string
	baseURL          string
	from             string
	coverPageID      string
	includeCoverPage bool
	client           *http.Client
}

func (s *Strategy) Provider() string {
	return "notifyre"
}

func (s *Strategy) Mode() providers.Mode {
	return providers.ModeDirect
}

type Recipient struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Document struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

type CoverPage struct {
	TemplateID string `json:"templateId,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Payload is the nested submission shape the Notifyre API expects.
type Payload struct {
	Faxes struct {
		Recipients      []Recipient `json:"recipients"`
		SendFrom        string      `json:"sendFrom,omitempty"`
		ClientReference string      `json:"clientReference,omitempty"`
		Documents       []Document  `json:"documents"`
		IsHighQuality   bool        `json:"isHighQuality"`
		CoverPage       *CoverPage  `json:"coverPage,omitempty"`
	} `json:"faxes"`
}

func (s *Strategy) BuildPayload(req *faxdomain.SendRequest, _ []string) (any, error) {
	if req == nil || len(req.Recipients) == 0 {
		return nil, faxdomain.ErrNoRecipients
	}
	if len(req.Attachments) == 0 {
		return nil, faxdomain.ErrNoAttachments
	}

	payload := &Payload{}
	for _, to := range req.Recipients {
		payload.Faxes.Recipients = append(payload.Faxes.Recipients, Recipient{
			Type:  "fax_number",
			Value: to,
		})
	}
	for _, doc := range req.Attachments {
		payload.Faxes.Documents = append(payload.Faxes.Documents, Document{
			Filename: doc.Filename,
			Data:     base64.StdEncoding.EncodeToString(doc.Data),
		})
	}

	from := strings.TrimSpace(req.SenderID)
	if from == "" {
		from = s.from
	}
	payload.Faxes.SendFrom = from
	payload.Faxes.ClientReference = req.Subject

	if s.includeCoverPage && s.coverPageID != "" {
		payload.Faxes.CoverPage = &CoverPage{
			TemplateID: s.coverPageID,
			Subject:    req.Subject,
			Message:    req.Message,
		}
	}

	return payload, nil
}

type sendResponse struct {
	Payload struct {
		FaxID      string `json:"faxID"`
		FriendlyID string `json:"friendlyID"`
	} `json:"payload"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (s *Strategy) Submit(ctx context.Context, payload any) (*providers.SubmitResult, error) {
	p, ok := payload.(*Payload)
	if !ok {
		return nil, providers.ErrInvalidPayload
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/fax/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-token", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providers.CarrierError{
			Provider:   s.Provider(),
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success || parsed.Payload.FaxID == "" {
		return nil, &providers.CarrierError{
			Provider:   s.Provider(),
			StatusCode: resp.StatusCode,
			Body:       parsed.Message,
		}
	}

	return &providers.SubmitResult{
		ExternalID: parsed.Payload.FaxID,
		RawStatus:  "Preparing",
	}, nil
}

func (s *Strategy) MapStatus(raw string) faxdomain.Status {
	return MapStatus(raw)
}

// MapStatus normalizes Notifyre's status vocabulary. The carrier reports
// dozens of "Failed - ..." sub-reasons; all collapse to failed except busy
// and no-answer, which stay distinguishable for retry UX. Unknown raw
// values map to failed.
func MapStatus(raw string) faxdomain.Status {
	switch normalized := strings.ToLower(strings.TrimSpace(raw)); normalized {
	case "preparing", "queued", "accepted":
		return faxdomain.StatusQueued
	case "processing", "in progress":
		return faxdomain.StatusProcessing
	case "sending":
		return faxdomain.StatusSending
	case "successful", "sent", "delivered":
		return faxdomain.StatusDelivered
	case "receiving":
		return faxdomain.StatusReceiving
	case "received":
		return faxdomain.StatusDelivered
	case "failed - busy":
		return faxdomain.StatusBusy
	case "failed - no answer":
		return faxdomain.StatusNoAnswer
	case "cancelled", "canceled":
		return faxdomain.StatusCancelled
	default:
		// Covers "failed" and every "Failed - <reason>" variant.
		return faxdomain.StatusFailed
	}
}
