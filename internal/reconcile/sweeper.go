package reconcile

import (
	"context"
	"time"

	"github.com/irensaltali/fax-app-backend/internal/clock"
	"github.com/irensaltali/fax-app-backend/internal/config"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepLockKey = "fax:reconcile:sweep"

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Cfg       config.Config
	FaxRepo   faxdomain.Repository
	Providers *providers.Registry
	Locker    *Locker `optional:"true"`
}

// Sweeper polls carriers for faxes stuck in a non-terminal status whose
// last update is older than the configured threshold. It closes the gap
// left by lost or delayed delivery webhooks.
type Sweeper struct {
	log        *zap.Logger
	clock      clock.Clock
	faxRepo    faxdomain.Repository
	providers  *providers.Registry
	locker     *Locker
	interval   time.Duration
	stuckAfter time.Duration
	batchSize  int
}

func New(p Params) *Sweeper {
	cfg := p.Cfg.Reconcile
	interval := time.Duration(cfg.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	stuckAfter := time.Duration(cfg.StuckAfterSec) * time.Second
	if stuckAfter <= 0 {
		stuckAfter = 15 * time.Minute
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Sweeper{
		log:        p.Log.Named("reconcile.sweeper"),
		clock:      p.Clock,
		faxRepo:    p.FaxRepo,
		providers:  p.Providers,
		locker:     p.Locker,
		interval:   interval,
		stuckAfter: stuckAfter,
		batchSize:  batchSize,
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("reconcile sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one sweep. When a locker is configured and another
// replica holds the lock, the run is skipped silently.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.interval)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		defer func() {
			if err := s.locker.Release(ctx, sweepLockKey, token); err != nil {
				s.log.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	cutoff := s.clock.Now().Add(-s.stuckAfter)
	records, err := s.faxRepo.FindStalled(ctx, cutoff, s.batchSize)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := s.reconcileOne(ctx, record); err != nil {
			s.log.Warn("failed to reconcile fax",
				zap.String("fax_id", record.ID.String()),
				zap.String("provider", record.Provider),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Sweeper) reconcileOne(ctx context.Context, record *faxdomain.FaxRecord) error {
	strategy, err := s.providers.NewStrategy(record.Provider)
	if err != nil {
		return err
	}
	fetcher, ok := strategy.(providers.StatusFetcher)
	if !ok {
		// Carrier has no polling endpoint; webhooks are the only source.
		return nil
	}

	raw, err := fetcher.GetStatus(ctx, record.ExternalID)
	if err != nil {
		return err
	}

	status := strategy.MapStatus(raw)
	if status == record.Status {
		return nil
	}

	now := s.clock.Now()
	var completedAt *time.Time
	if status.IsTerminal() {
		completedAt = &now
	}
	if err := s.faxRepo.ApplyStatus(ctx, record.ID, status, raw, now, completedAt); err != nil {
		return err
	}
	s.log.Info("reconciled stalled fax",
		zap.String("fax_id", record.ID.String()),
		zap.String("from", string(record.Status)),
		zap.String("to", string(status)),
	)
	return nil
}
