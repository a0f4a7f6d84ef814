package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	"github.com/irensaltali/fax-app-backend/internal/config"
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	creditrepository "github.com/irensaltali/fax-app-backend/internal/credit/repository"
	creditservice "github.com/irensaltali/fax-app-backend/internal/credit/service"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers/notifyre"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers/telnyx"
	faxrepository "github.com/irensaltali/fax-app-backend/internal/fax/repository"
	transferdomain "github.com/irensaltali/fax-app-backend/internal/transfer/domain"
	"github.com/irensaltali/fax-app-backend/internal/webhook/adapters"
	"github.com/irensaltali/fax-app-backend/internal/webhook/domain"
	"github.com/irensaltali/fax-app-backend/internal/webhook/repository"
	"github.com/irensaltali/fax-app-backend/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	carrierSecret = "carrier-secret"
	billingSecret = "Bearer billing-secret"
)

type fakeTransferSvc struct {
	calls []transferdomain.TransferRequest
}

func (f *fakeTransferSvc) Transfer(ctx context.Context, req transferdomain.TransferRequest) ([]*transferdomain.TransferRecord, error) {
	f.calls = append(f.calls, req)
	return []*transferdomain.TransferRecord{{Status: transferdomain.TransferCompleted}}, nil
}

type ingestEnv struct {
	svc         domain.Service
	db          *gorm.DB
	faxRepo     faxdomain.Repository
	clock       *clock.FakeClock
	node        *snowflake.Node
	transferSvc *fakeTransferSvc
}

func newIngestEnv(t *testing.T) *ingestEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&faxdomain.FaxRecord{},
		&creditdomain.CreditGrant{},
		&creditdomain.UsageEvent{},
		&domain.WebhookEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	cfg := config.Config{
		Telnyx:     config.TelnyxConfig{WebhookSecret: carrierSecret},
		Notifyre:   config.NotifyreConfig{WebhookSecret: carrierSecret},
		RevenueCat: config.RevenueCatConfig{WebhookSecret: billingSecret},
	}

	creditSvc := creditservice.NewService(creditservice.Params{
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Repo:    creditrepository.Provide(dbConn),
		Catalog: config.NewStaticCatalogHolder(config.DefaultProductCatalog()),
	})

	faxRepo := faxrepository.Provide(dbConn)
	transferSvc := &fakeTransferSvc{}

	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(dbConn),
		Adapters: adapters.NewRegistry(
			adapters.NewTelnyxAdapter(cfg.Telnyx),
			adapters.NewNotifyreAdapter(cfg.Notifyre),
			adapters.NewRevenueCatAdapter(cfg.RevenueCat),
		),
		Providers: providers.NewRegistry(
			providers.FactoryConfig{App: cfg},
			telnyx.NewFactory(),
			notifyre.NewFactory(),
		),
		FaxRepo:     faxRepo,
		CreditSvc:   creditSvc,
		TransferSvc: transferSvc,
	})

	return &ingestEnv{
		svc:         svc,
		db:          dbConn,
		faxRepo:     faxRepo,
		clock:       fake,
		node:        node,
		transferSvc: transferSvc,
	}
}

func signedHeaders(header string, payload []byte) http.Header {
	mac := hmac.New(sha256.New, []byte(carrierSecret))
	mac.Write(payload)
	h := http.Header{}
	h.Set(header, hex.EncodeToString(mac.Sum(nil)))
	return h
}

func billingHeaders() http.Header {
	h := http.Header{}
	h.Set("Authorization", billingSecret)
	return h
}

func (e *ingestEnv) createFax(t *testing.T, provider, externalID string, status faxdomain.Status) *faxdomain.FaxRecord {
	t.Helper()
	userID := "user-1"
	record := &faxdomain.FaxRecord{
		ID:         e.node.Generate(),
		UserID:     &userID,
		Provider:   provider,
		Status:     status,
		ExternalID: externalID,
		CreatedAt:  e.clock.Now(),
		UpdatedAt:  e.clock.Now(),
	}
	require.NoError(t, e.db.Create(record).Error)
	return record
}

func (e *ingestEnv) auditRows(t *testing.T) []domain.WebhookEvent {
	t.Helper()
	var rows []domain.WebhookEvent
	require.NoError(t, e.db.Find(&rows).Error)
	return rows
}

func notifyrePayload(eventID, faxID, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"fax_sent","payload":{"faxID":%q,"status":%q,"eventID":%q}}`,
		faxID, status, eventID,
	))
}

func purchasePayload(eventID, eventType, userID, productID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":{"id":%q,"type":%q,"app_user_id":%q,"product_id":%q,"purchased_at_ms":1748779200000}}`,
		eventID, eventType, userID, productID,
	))
}

func TestIngestRejectsBadSignature(t *testing.T) {
	env := newIngestEnv(t)
	payload := notifyrePayload("evt-1", "fax-1", "Sending")

	h := http.Header{}
	h.Set("X-Notifyre-Signature", "deadbeef")
	err := env.svc.Ingest(context.Background(), "notifyre", payload, h)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	require.Empty(t, env.auditRows(t))
}

func TestIngestUnknownProvider(t *testing.T) {
	env := newIngestEnv(t)

	err := env.svc.Ingest(context.Background(), "faxzilla", []byte(`{}`), http.Header{})
	require.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestIngestTerminalStatusSetsCompletedAtOnce(t *testing.T) {
	env := newIngestEnv(t)
	ctx := context.Background()
	record := env.createFax(t, "notifyre", "fax-1", faxdomain.StatusSending)

	payload := notifyrePayload("evt-1", "fax-1", "Failed - Busy")
	require.NoError(t, env.svc.Ingest(ctx, "notifyre", payload, signedHeaders("X-Notifyre-Signature", payload)))

	first, err := env.faxRepo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, faxdomain.StatusBusy, first.Status)
	require.NotNil(t, first.CompletedAt)
	completedAt := *first.CompletedAt

	// A later terminal status still wins per field, but completed_at is
	// write-once.
	env.clock.Advance(time.Hour)
	payload = notifyrePayload("evt-2", "fax-1", "Cancelled")
	require.NoError(t, env.svc.Ingest(ctx, "notifyre", payload, signedHeaders("X-Notifyre-Signature", payload)))

	second, err := env.faxRepo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, faxdomain.StatusCancelled, second.Status)
	require.NotNil(t, second.CompletedAt)
	require.Equal(t, completedAt.Unix(), second.CompletedAt.Unix())
}

func TestIngestDuplicateEventID(t *testing.T) {
	env := newIngestEnv(t)
	ctx := context.Background()
	payload := purchasePayload("evt-dup", "INITIAL_PURCHASE", "user-1", "fax_pages_10")

	require.NoError(t, env.svc.Ingest(ctx, "revenuecat", payload, billingHeaders()))

	for i := 0; i < 3; i++ {
		err := env.svc.Ingest(ctx, "revenuecat", payload, billingHeaders())
		require.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
	}

	require.Len(t, env.auditRows(t), 1)

	// The side effect ran exactly once: pages were not re-added.
	var grants []creditdomain.CreditGrant
	require.NoError(t, env.db.Find(&grants, "user_id = ?", "user-1").Error)
	require.Len(t, grants, 1)
	require.Equal(t, 10, grants[0].PageLimit)
}

func TestIngestPurchaseCreatesGrant(t *testing.T) {
	env := newIngestEnv(t)
	payload := purchasePayload("evt-p1", "INITIAL_PURCHASE", "user-1", "fax_sub_100_monthly")

	require.NoError(t, env.svc.Ingest(context.Background(), "revenuecat", payload, billingHeaders()))

	var grant creditdomain.CreditGrant
	require.NoError(t, env.db.First(&grant, "user_id = ?", "user-1").Error)
	require.Equal(t, creditdomain.GrantKindSubscription, grant.Kind)
	require.Equal(t, 100, grant.PageLimit)
	require.NotNil(t, grant.ExpiresAt)

	rows := env.auditRows(t)
	require.Len(t, rows, 1)
	require.Equal(t, domain.ResultProcessed, rows[0].Result)
	require.Equal(t, domain.CategoryPurchase, rows[0].Category)
}

func TestIngestCancellationDeactivatesGrant(t *testing.T) {
	env := newIngestEnv(t)
	ctx := context.Background()

	payload := purchasePayload("evt-p1", "INITIAL_PURCHASE", "user-1", "fax_sub_100_monthly")
	require.NoError(t, env.svc.Ingest(ctx, "revenuecat", payload, billingHeaders()))

	payload = purchasePayload("evt-c1", "CANCELLATION", "user-1", "fax_sub_100_monthly")
	require.NoError(t, env.svc.Ingest(ctx, "revenuecat", payload, billingHeaders()))

	var grant creditdomain.CreditGrant
	require.NoError(t, env.db.First(&grant, "user_id = ?", "user-1").Error)
	require.False(t, grant.IsActive)
}

func TestIngestTransferDelegates(t *testing.T) {
	env := newIngestEnv(t)
	payload := []byte(`{"event":{"id":"evt-t1","type":"TRANSFER","transferred_from":["$RCAnonymousID:abc"],"transferred_to":["user-2"]}}`)

	require.NoError(t, env.svc.Ingest(context.Background(), "revenuecat", payload, billingHeaders()))

	require.Len(t, env.transferSvc.calls, 1)
	require.Equal(t, []string{"$RCAnonymousID:abc"}, env.transferSvc.calls[0].FromUserIDs)
	require.Equal(t, []string{"user-2"}, env.transferSvc.calls[0].ToUserIDs)
}

func TestIngestUnknownEventTypeStillAudited(t *testing.T) {
	env := newIngestEnv(t)
	payload := purchasePayload("evt-x1", "TEST", "user-1", "")

	require.NoError(t, env.svc.Ingest(context.Background(), "revenuecat", payload, billingHeaders()))

	rows := env.auditRows(t)
	require.Len(t, rows, 1)
	require.Equal(t, domain.ResultIgnored, rows[0].Result)
}

func TestIngestUnknownFaxAcknowledged(t *testing.T) {
	env := newIngestEnv(t)
	payload := notifyrePayload("evt-1", "no-such-fax", "Successful")

	require.NoError(t, env.svc.Ingest(context.Background(), "notifyre", payload, signedHeaders("X-Notifyre-Signature", payload)))

	rows := env.auditRows(t)
	require.Len(t, rows, 1)
	require.Equal(t, domain.ResultIgnored, rows[0].Result)
}
