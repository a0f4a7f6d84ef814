package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	"github.com/irensaltali/fax-app-backend/internal/config"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	faxrepository "github.com/irensaltali/fax-app-backend/internal/fax/repository"
	"github.com/irensaltali/fax-app-backend/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pollingStrategy struct {
	statuses map[string]string
	polls    int
}

func (s *pollingStrategy) Provider() string     { return "fake" }
func (s *pollingStrategy) Mode() providers.Mode { return providers.ModeStaged }

func (s *pollingStrategy) BuildPayload(req *faxdomain.SendRequest, mediaURLs []string) (any, error) {
	return nil, nil
}

func (s *pollingStrategy) Submit(ctx context.Context, payload any) (*providers.SubmitResult, error) {
	return nil, nil
}

func (s *pollingStrategy) MapStatus(raw string) faxdomain.Status {
	switch raw {
	case "delivered":
		return faxdomain.StatusDelivered
	case "sending":
		return faxdomain.StatusSending
	default:
		return faxdomain.StatusFailed
	}
}

func (s *pollingStrategy) GetStatus(ctx context.Context, externalID string) (string, error) {
	s.polls++
	return s.statuses[externalID], nil
}

type pollingFactory struct {
	strategy *pollingStrategy
}

func (f pollingFactory) Provider() string { return "fake" }

func (f pollingFactory) NewStrategy(cfg providers.FactoryConfig) (providers.Strategy, error) {
	return f.strategy, nil
}

func (f pollingFactory) MapStatus(raw string) faxdomain.Status { return f.strategy.MapStatus(raw) }

func newSweeperEnv(t *testing.T) (*Sweeper, *gorm.DB, *clock.FakeClock, *snowflake.Node, *pollingStrategy) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&faxdomain.FaxRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	strategy := &pollingStrategy{statuses: map[string]string{}}

	sweeper := New(Params{
		Log:     zap.NewNop(),
		Clock:   fake,
		Cfg:     config.Config{Reconcile: config.ReconcileConfig{StuckAfterSec: 900, BatchSize: 10}},
		FaxRepo: faxrepository.Provide(dbConn),
		Providers: providers.NewRegistry(
			providers.FactoryConfig{},
			pollingFactory{strategy: strategy},
		),
	})

	return sweeper, dbConn, fake, node, strategy
}

func seedFax(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, at time.Time, status faxdomain.Status, externalID string) snowflake.ID {
	t.Helper()
	userID := "user-1"
	record := &faxdomain.FaxRecord{
		ID:         node.Generate(),
		UserID:     &userID,
		Provider:   "fake",
		Status:     status,
		ExternalID: externalID,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	require.NoError(t, dbConn.Create(record).Error)
	// gorm stamps updated_at on create; force the seeded staleness.
	require.NoError(t, dbConn.Exec(`UPDATE fax_records SET updated_at = ? WHERE id = ?`, at, record.ID).Error)
	return record.ID
}

func TestRunOnceReconcilesStalledFax(t *testing.T) {
	sweeper, dbConn, fake, node, strategy := newSweeperEnv(t)

	stale := fake.Now().Add(-time.Hour)
	id := seedFax(t, dbConn, node, stale, faxdomain.StatusSending, "ext-1")
	strategy.statuses["ext-1"] = "delivered"

	require.NoError(t, sweeper.RunOnce(context.Background()))

	var record faxdomain.FaxRecord
	require.NoError(t, dbConn.First(&record, "id = ?", id).Error)
	require.Equal(t, faxdomain.StatusDelivered, record.Status)
	require.NotNil(t, record.CompletedAt)
}

func TestRunOnceSkipsFreshAndTerminalRecords(t *testing.T) {
	sweeper, dbConn, fake, node, strategy := newSweeperEnv(t)

	// Too recent to count as stuck.
	seedFax(t, dbConn, node, fake.Now().Add(-time.Minute), faxdomain.StatusSending, "ext-fresh")
	// Already terminal.
	seedFax(t, dbConn, node, fake.Now().Add(-time.Hour), faxdomain.StatusDelivered, "ext-done")
	// No carrier id to poll with.
	seedFax(t, dbConn, node, fake.Now().Add(-time.Hour), faxdomain.StatusQueued, "")

	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.Equal(t, 0, strategy.polls)
}

func TestRunOnceLeavesUnchangedStatusAlone(t *testing.T) {
	sweeper, dbConn, fake, node, strategy := newSweeperEnv(t)

	stale := fake.Now().Add(-time.Hour)
	id := seedFax(t, dbConn, node, stale, faxdomain.StatusSending, "ext-1")
	strategy.statuses["ext-1"] = "sending"

	require.NoError(t, sweeper.RunOnce(context.Background()))

	var record faxdomain.FaxRecord
	require.NoError(t, dbConn.First(&record, "id = ?", id).Error)
	require.Equal(t, faxdomain.StatusSending, record.Status)
	require.Nil(t, record.CompletedAt)
	require.Equal(t, 1, strategy.polls)
}
