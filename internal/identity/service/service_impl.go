package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/irensaltali/fax-app-backend/internal/config"
	identitydomain "github.com/irensaltali/fax-app-backend/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

// Service talks to the identity provider's admin API over HTTP.
type Service struct {
	log        *zap.Logger
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewService(p Params) identitydomain.Service {
	return &Service{
		log:        p.Log.Named("identity.service"),
		baseURL:    strings.TrimRight(p.Cfg.Identity.BaseURL, "/"),
		serviceKey: p.Cfg.Identity.ServiceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	if s.baseURL == "" {
		return false, identitydomain.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userURL(userID), nil)
	if err != nil {
		return false, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("identity lookup returned %d", resp.StatusCode)
	}
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	if s.baseURL == "" {
		return identitydomain.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.userURL(userID), nil)
	if err != nil {
		return err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	s.log.Warn("identity delete rejected",
		zap.String("user_id", userID),
		zap.Int("status", resp.StatusCode),
	)
	return identitydomain.ErrDeleteFailed
}

func (s *Service) userURL(userID string) string {
	return s.baseURL + "/admin/users/" + url.PathEscape(userID)
}

func (s *Service) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}
