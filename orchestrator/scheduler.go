package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"emarknews/types"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is what the scheduler drives.
type Refresher interface {
	Categories() []string
	Refresh(ctx context.Context, category string) types.CacheEntry
}

// Scheduler keeps full entries warm by refreshing every category on a
// cron schedule.
type Scheduler struct {
	target  Refresher
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entryID cron.EntryID
	running atomic.Bool
	ctx     context.Context
}

func NewScheduler(target Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		target: target,
		cron:   cron.New(),
		logger: logger,
		ctx:    context.Background(),
	}
}

// Start registers spec (standard cron or "@every 5m") and starts the cron.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	id, err := s.cron.AddFunc(spec, s.RunOnce)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.logger.Info("refresh schedule started", zap.String("schedule", spec))
	return nil
}

// RunOnce refreshes every category. A run that starts while the previous
// one is still going is skipped.
func (s *Scheduler) RunOnce() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("refresh skipped: previous run still busy")
		return
	}
	defer s.running.Store(false)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	for _, category := range s.target.Categories() {
		if ctx.Err() != nil {
			return
		}
		entry := s.target.Refresh(ctx, category)
		if !entry.Success {
			s.logger.Warn("scheduled refresh failed", zap.String("category", category), zap.String("error", entry.Error))
			continue
		}
		s.logger.Debug("scheduled refresh done", zap.String("category", category), zap.Int("articles", entry.Total))
	}
}

// Stop stops the cron and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
