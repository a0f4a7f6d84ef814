// Package telnyx implements the staged carrier strategy. Telnyx fetches the
// fax document from a public media URL, so submissions reference storage
// instead of carrying bytes.
package telnyx

import (
	"bytes"
	"context"
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
	return "telnyx"
}

func (f *Factory) NewStrategy(cfg providers.FactoryConfig) (providers.Strategy, error) {
	tc := cfg.App.Telnyx
	if tc.APIKey == "" || tc.ConnectionID == "" {
		return nil, providers.ErrProviderNotConfigured
	}
	if cfg.Store == nil {
		return nil, providers.ErrProviderNotConfigured
	}

	return &Strategy{
		apiKey:       tc.APIKey,
		connectionID: tc.ConnectionID,
		baseURL:      strings.TrimRight(tc.BaseURL, "/"),
		from:         cfg.App.SenderNumber,
		client:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (f *Factory) MapStatus(raw string) faxdomain.Status {
	return MapStatus(raw)
}

type Strategy struct {
	apiKey       string
	connectionID string
	baseURL      string
	from         string
	client       *http.Client
}

func (s *Strategy) Provider() string {
	return "telnyx"
}

func (s *Strategy) Mode() providers.Mode {
	return providers.ModeStaged
}

// Payload is the flat submission shape Telnyx expects.
type Payload struct {
	ConnectionID string `json:"connection_id"`
	MediaURL     string `json:"media_url"`
	To           string `json:"to"`
	From         string `json:"from"`
}

func (s *Strategy) BuildPayload(req *faxdomain.SendRequest, mediaURLs []string) (any, error) {
	if req == nil || len(req.Recipients) == 0 {
		return nil, faxdomain.ErrNoRecipients
	}
	if len(mediaURLs) == 0 {
		return nil, providers.ErrInvalidPayload
	}

	from := strings.TrimSpace(req.SenderID)
	if from == "" {
		from = s.from
	}

	return &Payload{
		ConnectionID: s.connectionID,
		MediaURL:     mediaURLs[0],
		To:           req.Recipients[0],
		From:         from,
	}, nil
}

type faxResponse struct {
	Data struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		PageCount int    `json:"page_count"`
	} `json:"data"`
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

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/faxes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

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

	var parsed faxResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}
	if parsed.Data.ID == "" {
		return nil, &providers.CarrierError{
			Provider:   s.Provider(),
			StatusCode: resp.StatusCode,
			Body:       "missing fax id in response",
		}
	}

	status := parsed.Data.Status
	if status == "" {
		status = "queued"
	}
	return &providers.SubmitResult{
		ExternalID: parsed.Data.ID,
		RawStatus:  status,
		PageCount:  parsed.Data.PageCount,
	}, nil
}

// GetStatus polls the carrier for the current raw status of a fax.
func (s *Strategy) GetStatus(ctx context.Context, externalID string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/faxes/"+externalID, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &providers.CarrierError{
			Provider:   s.Provider(),
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var parsed faxResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", err
	}
	return parsed.Data.Status, nil
}

func (s *Strategy) MapStatus(raw string) faxdomain.Status {
	return MapStatus(raw)
}

// MapStatus normalizes Telnyx's event codes. The carrier reports a handful
// of states; anything unrecognized maps to failed.
func MapStatus(raw string) faxdomain.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued":
		return faxdomain.StatusQueued
	case "media.processed":
		return faxdomain.StatusProcessing
	case "originated", "sending", "sending.started":
		return faxdomain.StatusSending
	case "delivered":
		return faxdomain.StatusDelivered
	case "receiving":
		return faxdomain.StatusReceiving
	case "canceled", "cancelled":
		return faxdomain.StatusCancelled
	case "failed":
		return faxdomain.StatusFailed
	default:
		return faxdomain.StatusFailed
	}
}
