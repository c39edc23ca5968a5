package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"emarknews/cache"
	"emarknews/config"
	"emarknews/deduplication"
	"emarknews/ranking"
	"emarknews/sources"
	"emarknews/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidFeedback = errors.New("invalid feedback")
	ErrNothingCached   = errors.New("nothing cached for category")
)

// Enricher adds translations and summaries to a ranked batch.
type Enricher interface {
	Enrich(ctx context.Context, category string, batch []types.Article) []types.Article
}

// Notifier announces completed full writes.
type Notifier interface {
	PublishRefresh(ctx context.Context, event types.RefreshEvent) error
}

// SnapshotStore keeps the latest full document per category outside the cache.
type SnapshotStore interface {
	Save(ctx context.Context, entry types.CacheEntry) error
	Latest(ctx context.Context, category string) (types.CacheEntry, bool, error)
}

// Deps are the collaborators of an Orchestrator. Sources, Cache and
// Ranker are required.
type Deps struct {
	Catalog   config.Catalog
	Sources   sources.Adapter
	Cache     *cache.TieredCache
	Ranker    *ranking.Engine
	Filter    *deduplication.Filter
	Clusterer deduplication.Clusterer
	Enricher  Enricher
	Archive   SnapshotStore
	Notifier  Notifier
	Metrics   *Metrics
	Logger    *zap.Logger
}

type Options struct {
	Phase1Deadline time.Duration
	Phase2Deadline time.Duration
	MaxInFlight    int
}

func (o Options) withDefaults() Options {
	if o.Phase1Deadline <= 0 {
		o.Phase1Deadline = config.Phase1Deadline
	}
	if o.Phase2Deadline <= 0 {
		o.Phase2Deadline = config.Phase2Deadline
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = config.MaxInFlight
	}
	return o
}

// Orchestrator runs the two-phase fetch cycle of every category and
// answers reads from the tiered cache.
type Orchestrator struct {
	catalog   atomic.Pointer[config.Catalog]
	sources   sources.Adapter
	cache     *cache.TieredCache
	ranker    *ranking.Engine
	filter    *deduplication.Filter
	clusterer deduplication.Clusterer
	enricher  Enricher
	archive   SnapshotStore
	notifier  Notifier
	metrics   *Metrics
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	state   *Manager
	late    *latePool
	limiter *semaphore.Weighted
	phase1  singleflight.Group
	refresh singleflight.Group
	seq     atomic.Uint64

	// ctx outlives requests; abandoned fetches and phase 2 run under it.
	ctx    context.Context
	cancel context.CancelFunc
	lifeMu sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Sources == nil:
		return nil, errors.New("orchestrator needs a source adapter")
	case deps.Cache == nil:
		return nil, errors.New("orchestrator needs a cache")
	case deps.Ranker == nil:
		return nil, errors.New("orchestrator needs a ranker")
	}
	if err := deps.Catalog.Validate(); err != nil {
		return nil, err
	}
	if deps.Filter == nil {
		deps.Filter = deduplication.NewFilter()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		sources:   deps.Sources,
		cache:     deps.Cache,
		ranker:    deps.Ranker,
		filter:    deps.Filter,
		clusterer: deps.Clusterer,
		enricher:  deps.Enricher,
		archive:   deps.Archive,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		opts:      opts,
		now:       time.Now,
		state:     NewManager(),
		late:      newLatePool(),
		limiter:   semaphore.NewWeighted(int64(opts.MaxInFlight)),
		ctx:       ctx,
		cancel:    cancel,
	}
	cat := deps.Catalog
	o.catalog.Store(&cat)
	// Microseconds keep the sequence monotonic across restarts and below
	// 2^53, where the cache's Lua comparison is still exact.
	o.seq.Store(uint64(time.Now().UnixMicro()))
	return o, nil
}

type cycle struct {
	id       string
	category string
	seq      uint64
}

func (o *Orchestrator) beginCycle(category string) cycle {
	c := cycle{id: uuid.New().String(), category: category, seq: o.seq.Add(1)}
	o.state.Begin(category, c.id, c.seq)
	return c
}

// track registers one background goroutine. It fails once Close has begun.
func (o *Orchestrator) track() bool {
	o.lifeMu.RLock()
	defer o.lifeMu.RUnlock()
	if o.closed {
		return false
	}
	o.wg.Add(1)
	return true
}

func (o *Orchestrator) spawn(fn func()) bool {
	if !o.track() {
		return false
	}
	go func() {
		defer o.wg.Done()
		fn()
	}()
	return true
}

// Close stops background work and waits for it to finish. Outstanding
// fetches see their context cancelled.
func (o *Orchestrator) Close() {
	o.lifeMu.Lock()
	o.closed = true
	o.lifeMu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) known(category string) bool {
	_, ok := o.catalog.Load().Categories[category]
	return ok
}

// Categories returns the configured category names.
func (o *Orchestrator) Categories() []string {
	return o.catalog.Load().CategoryNames()
}

func (o *Orchestrator) lookup(ctx context.Context, category string, tier types.Tier) (types.CacheEntry, cache.Freshness) {
	entry, f := o.cache.Lookup(ctx, category, tier)
	o.metrics.CacheLookups.WithLabelValues(string(tier), f.String()).Inc()
	return entry, f
}

// Get returns the best available document for category. On a miss it
// runs phase 1 and returns the partial result; phase 2 continues in the
// background.
func (o *Orchestrator) Get(ctx context.Context, category string) types.CacheEntry {
	if !o.known(category) {
		return types.Failure(category, ErrUnknownCategory.Error())
	}

	deadline := time.Now().Add(o.opts.Phase1Deadline)
	lctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	full, fullState := o.lookup(lctx, category, types.TierFull)
	if fullState == cache.Fresh {
		return full
	}
	if fast, f := o.lookup(lctx, category, types.TierFast); f == cache.Fresh {
		return fast
	}
	if fullState == cache.Stale {
		o.refreshInBackground(category)
		return full
	}
	return o.sharedPhase1(ctx, category, deadline)
}

// GetFast prefers the fast tier and never waits past phase 1.
func (o *Orchestrator) GetFast(ctx context.Context, category string) types.CacheEntry {
	if !o.known(category) {
		return types.Failure(category, ErrUnknownCategory.Error())
	}

	deadline := time.Now().Add(o.opts.Phase1Deadline)
	lctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if fast, f := o.lookup(lctx, category, types.TierFast); f == cache.Fresh {
		return fast
	}
	if full, f := o.lookup(lctx, category, types.TierFull); f != cache.Miss {
		if f == cache.Stale {
			o.refreshInBackground(category)
		}
		return full
	}
	return o.sharedPhase1(ctx, category, deadline)
}

// phase1Grace covers filtering and ranking once the race has returned.
const phase1Grace = 100 * time.Millisecond

// sharedPhase1 lets concurrent misses of one category share a cycle. The
// caller waits no longer than deadline plus phase1Grace.
func (o *Orchestrator) sharedPhase1(ctx context.Context, category string, deadline time.Time) types.CacheEntry {
	budget := time.Until(deadline)
	ch := o.phase1.DoChan(category, func() (interface{}, error) {
		if !o.track() {
			return types.Failure(category, "shutting down"), nil
		}
		defer o.wg.Done()
		return o.runPhase1(category, budget), nil
	})

	timer := time.NewTimer(budget + phase1Grace)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.Val.(types.CacheEntry)
	case <-ctx.Done():
		return types.Failure(category, ctx.Err().Error())
	case <-timer.C:
		return types.Failure(category, "phase 1 deadline exceeded")
	}
}

// runPhase1 races phase-1 sources for budget and returns the partial
// result. The fast-tier write and phase 2 continue in the background.
func (o *Orchestrator) runPhase1(category string, budget time.Duration) types.CacheEntry {
	if floor := o.opts.Phase1Deadline / 4; budget < floor {
		budget = floor
	}
	c := o.beginCycle(category)
	start := time.Now()

	fetched := o.race(category, o.catalog.Load().SourcesForPhase(category, 1), budget)
	pool := o.filter.Apply(fetched)
	ranked := o.ranker.Preview(category, pool)

	entry := types.NewEntry(category, ranked, true, c.seq, o.now())
	o.spawn(func() {
		wctx, cancel := context.WithTimeout(o.ctx, config.CacheWriteTimeout)
		defer cancel()
		if !o.cache.Put(wctx, types.TierFast, entry) {
			o.logger.Debug("partial write superseded", zap.String("category", category), zap.Uint64("seq", c.seq))
		}
	})
	o.metrics.PhaseDuration.WithLabelValues("phase1").Observe(time.Since(start).Seconds())
	o.state.Advance(category, c.id, types.PhasePartialReady, len(ranked))

	o.logger.Info("partial result ready",
		zap.String("category", category),
		zap.String("cycle", c.id),
		zap.Int("fetched", len(fetched)),
		zap.Int("ranked", len(ranked)),
		zap.Duration("elapsed", time.Since(start)))

	o.spawn(func() { o.runPhase2(o.ctx, c, pool) })
	return entry
}

// Refresh runs a complete cycle synchronously and returns the full
// document. Concurrent refreshes of one category share a cycle.
func (o *Orchestrator) Refresh(ctx context.Context, category string) types.CacheEntry {
	if !o.known(category) {
		return types.Failure(category, ErrUnknownCategory.Error())
	}
	v, _, _ := o.refresh.Do(category, func() (interface{}, error) {
		return o.refreshCycle(ctx, category), nil
	})
	return v.(types.CacheEntry)
}

func (o *Orchestrator) refreshInBackground(category string) {
	o.refresh.DoChan(category, func() (interface{}, error) {
		if !o.track() {
			return types.Failure(category, "shutting down"), nil
		}
		defer o.wg.Done()
		return o.refreshCycle(o.ctx, category), nil
	})
}

// refreshCycle skips the fast write so readers keep the previous full
// document until the new one lands.
func (o *Orchestrator) refreshCycle(ctx context.Context, category string) types.CacheEntry {
	c := o.beginCycle(category)
	start := time.Now()

	pool := o.filter.Apply(o.race(category, o.catalog.Load().SourcesForPhase(category, 1), o.opts.Phase1Deadline))
	o.metrics.PhaseDuration.WithLabelValues("phase1").Observe(time.Since(start).Seconds())
	o.state.Advance(category, c.id, types.PhasePartialReady, len(pool))

	return o.runPhase2(ctx, c, pool)
}

func (o *Orchestrator) runPhase2(ctx context.Context, c cycle, phase1Pool []types.Article) types.CacheEntry {
	o.state.Advance(c.category, c.id, types.PhasePhase2Race, len(phase1Pool))
	start := time.Now()

	fetched := o.race(c.category, o.catalog.Load().SourcesForPhase(c.category, 2), o.opts.Phase2Deadline)
	late := o.late.drain(c.category)

	merged := make([]types.Article, 0, len(phase1Pool)+len(fetched)+len(late))
	merged = append(merged, phase1Pool...)
	merged = append(merged, fetched...)
	merged = append(merged, late...)

	pool := o.filter.Apply(merged)
	if o.clusterer != nil {
		pool = o.clusterer.Assign(ctx, pool)
	}
	ranked := o.ranker.Rank(c.category, pool)
	if o.enricher != nil {
		ranked = o.enricher.Enrich(ctx, c.category, ranked)
	}

	entry := types.NewEntry(c.category, ranked, false, c.seq, o.now())
	o.metrics.PhaseDuration.WithLabelValues("phase2").Observe(time.Since(start).Seconds())

	if !o.cache.Put(ctx, types.TierFull, entry) {
		o.metrics.Cycles.WithLabelValues("superseded").Inc()
		o.state.AddLog(c.category, fmt.Sprintf("cycle %s superseded by a newer write", c.id))
		o.logger.Info("full write superseded", zap.String("category", c.category), zap.String("cycle", c.id))
		return entry
	}
	o.metrics.Cycles.WithLabelValues("full").Inc()
	o.state.Advance(c.category, c.id, types.PhaseFullReady, len(ranked))

	o.logger.Info("full result ready",
		zap.String("category", c.category),
		zap.String("cycle", c.id),
		zap.Int("fetched", len(fetched)),
		zap.Int("late", len(late)),
		zap.Int("ranked", len(ranked)),
		zap.Duration("elapsed", time.Since(start)))

	o.publish(ctx, c, entry)
	return entry
}

func (o *Orchestrator) publish(ctx context.Context, c cycle, entry types.CacheEntry) {
	if o.archive != nil {
		actx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := o.archive.Save(actx, entry); err != nil {
			o.logger.Warn("failed to archive snapshot", zap.String("category", c.category), zap.Error(err))
		}
		cancel()
	}
	if o.notifier != nil {
		event := types.RefreshEvent{
			CycleID:   c.id,
			Category:  c.category,
			Sequence:  c.seq,
			Total:     entry.Total,
			Timestamp: entry.Timestamp,
		}
		if err := o.notifier.PublishRefresh(ctx, event); err != nil {
			o.logger.Warn("failed to publish refresh event", zap.String("category", c.category), zap.Error(err))
		}
	}
}

type fetchResult struct {
	articles []types.Article
	skipped  bool
}

// race launches descs and returns what settled before deadline. Fetches
// still running at the deadline are not cancelled; whatever they return
// goes to the category's late pool.
func (o *Orchestrator) race(category string, descs []types.Descriptor, deadline time.Duration) []types.Article {
	if len(descs) == 0 {
		return nil
	}

	// A fetch that cannot get a limiter slot before the deadline is skipped.
	acquireCtx, cancelAcquire := context.WithTimeout(o.ctx, deadline)
	defer cancelAcquire()

	results := make(chan fetchResult, len(descs))
	launched := 0
	for _, d := range descs {
		ok := o.spawn(func() {
			if err := o.limiter.Acquire(acquireCtx, 1); err != nil {
				results <- fetchResult{skipped: true}
				return
			}
			defer o.limiter.Release(1)

			articles := o.sources.Fetch(o.ctx, d)
			o.metrics.SourceArticles.WithLabelValues(d.Name).Add(float64(len(articles)))
			results <- fetchResult{articles: articles}
		})
		if ok {
			launched++
		}
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var collected []types.Article
	pending := launched
collect:
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			collected = append(collected, r.articles...)
		case <-timer.C:
			break collect
		}
	}

	if pending > 0 {
		o.logger.Debug("phase deadline passed with fetches outstanding",
			zap.String("category", category),
			zap.Int("outstanding", pending))
		o.spawn(func() {
			for i := 0; i < pending; i++ {
				r := <-results
				if r.skipped {
					continue
				}
				o.metrics.LateResults.Inc()
				o.late.add(category, r.articles)
			}
		})
	}
	return collected
}

// ClearAll drops every cached category.
func (o *Orchestrator) ClearAll(ctx context.Context) {
	o.cache.Clear(ctx)
	o.late.clear()
	for _, name := range o.Categories() {
		o.state.Reset(name, "cache cleared")
	}
	o.logger.Info("cache cleared")
}

// Invalidate drops both tiers of one category.
func (o *Orchestrator) Invalidate(ctx context.Context, category string) error {
	if !o.known(category) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	o.cache.Invalidate(ctx, category)
	o.state.Reset(category, "cache invalidated")
	return nil
}

// RecomputeRatings re-scores the cached document of category without
// fetching or enriching, and writes it back to the tier it came from.
func (o *Orchestrator) RecomputeRatings(ctx context.Context, category string) types.CacheEntry {
	if !o.known(category) {
		return types.Failure(category, ErrUnknownCategory.Error())
	}

	tier := types.TierFull
	entry, f := o.lookup(ctx, category, tier)
	if f == cache.Miss {
		tier = types.TierFast
		entry, f = o.lookup(ctx, category, tier)
	}
	if f == cache.Miss {
		return types.Failure(category, ErrNothingCached.Error())
	}

	ranked := o.ranker.Recompute(category, entry.Data)
	// The cached sequence is kept so a cycle already in flight still wins.
	updated := types.NewEntry(category, ranked, entry.Partial, entry.Sequence, entry.Timestamp)

	var ok bool
	if f == cache.Stale {
		ok = o.cache.PutStale(ctx, updated)
	} else {
		ok = o.cache.Put(ctx, tier, updated)
	}
	if !ok {
		o.logger.Info("recomputed ratings superseded by a newer write", zap.String("category", category))
	}
	o.state.AddLog(category, fmt.Sprintf("ratings recomputed for %d articles", len(ranked)))
	updated.Stale = f == cache.Stale
	return updated
}

// RecordFeedback applies a validated feedback nudge to future rankings.
func (o *Orchestrator) RecordFeedback(f types.Feedback) error {
	if msg := f.Validate(); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidFeedback, msg)
	}
	if f.Category != "" && !o.known(f.Category) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, f.Category)
	}
	o.ranker.RecordFeedback(f)
	return nil
}

// Reconfigure swaps in a new catalog and the ranking configuration built
// from it. Cycles in flight finish with what they started with.
func (o *Orchestrator) Reconfigure(cat config.Catalog) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	rcfg, err := ranking.FromCatalog(cat)
	if err != nil {
		return err
	}
	if err := o.ranker.Reconfigure(rcfg); err != nil {
		return err
	}
	o.catalog.Store(&cat)
	o.logger.Info("catalog reloaded", zap.Strings("categories", cat.CategoryNames()))
	return nil
}

// Status reports the phase, sequence and recent log lines of each category.
func (o *Orchestrator) Status() types.StatusResponse {
	return o.state.Status(o.Categories(), o.late.size)
}

// WarmFromArchive seeds empty full tiers from archived snapshots as stale
// entries, so the first reads are served at once and trigger a refresh.
func (o *Orchestrator) WarmFromArchive(ctx context.Context) int {
	if o.archive == nil {
		return 0
	}
	warmed := 0
	for _, name := range o.Categories() {
		if _, f := o.cache.Lookup(ctx, name, types.TierFull); f != cache.Miss {
			continue
		}
		entry, found, err := o.archive.Latest(ctx, name)
		if err != nil {
			o.logger.Warn("failed to load snapshot", zap.String("category", name), zap.Error(err))
			continue
		}
		if !found || !entry.Success {
			continue
		}
		if o.cache.PutStale(ctx, entry) {
			warmed++
			o.state.AddLog(name, fmt.Sprintf("warmed from snapshot with %d articles", entry.Total))
		}
	}
	return warmed
}
