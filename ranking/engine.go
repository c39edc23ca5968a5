package ranking

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"emarknews/types"

	"go.uber.org/zap"
)

// Engine scores and orders article batches per category. It is safe for
// concurrent use; the fatigue map and feedback bias are shared across
// cycles.
type Engine struct {
	cfg     atomic.Pointer[Config]
	fatigue *Fatigue
	logger  *zap.Logger
	now     func() time.Time

	rngMu  sync.Mutex
	random func() float64

	fbMu     sync.Mutex
	feedback map[string]float64
}

type Option func(*Engine)

// WithRandom replaces the exploration dice, for tests.
func WithRandom(f func() float64) Option { return func(e *Engine) { e.random = f } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ranking config: %w", err)
	}
	fatigue, err := NewFatigue(cfg.FatigueCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create fatigue map: %w", err)
	}

	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &Engine{
		fatigue:  fatigue,
		logger:   zap.NewNop(),
		now:      time.Now,
		random:   src.Float64,
		feedback: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.Store(&cfg)
	return e, nil
}

// Config returns the active configuration.
func (e *Engine) Config() *Config { return e.cfg.Load() }

// Reconfigure swaps in a new configuration. Cycles already ranking keep
// the one they started with.
func (e *Engine) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid ranking config: %w", err)
	}
	old := e.cfg.Swap(&cfg)
	if old == nil || old.FatigueCapacity != cfg.FatigueCapacity {
		e.fatigue.Resize(cfg.FatigueCapacity)
	}
	e.logger.Info("ranking reconfigured", zap.Int("profiles", len(cfg.Profiles)))
	return nil
}

// Rank returns the top-K of batch for category, scored, rated and tagged.
// The leading items are stamped into the fatigue map.
func (e *Engine) Rank(category string, batch []types.Article) []types.Article {
	cfg := e.cfg.Load()
	prof := cfg.Profile(category)
	now := e.now()

	ranked := e.order(cfg, prof, batch, prof.TopK, now, true)

	stamp := cfg.FatigueStampTop
	if stamp > len(ranked) {
		stamp = len(ranked)
	}
	for i := 0; i < stamp; i++ {
		e.fatigue.Stamp(ranked[i].ClusterID, now)
	}
	return ranked
}

// Preview ranks like Rank but leaves the fatigue map alone. It serves the
// partial result of a cycle whose full ranking will do the stamping.
func (e *Engine) Preview(category string, batch []types.Article) []types.Article {
	cfg := e.cfg.Load()
	prof := cfg.Profile(category)
	return e.order(cfg, prof, batch, prof.TopK, e.now(), true)
}

// Recompute re-scores an already ranked batch without dropping items
// or touching enrichment fields. Fatigue is neither applied nor stamped
// since these items are the ones that caused it.
func (e *Engine) Recompute(category string, batch []types.Article) []types.Article {
	cfg := e.cfg.Load()
	prof := cfg.Profile(category)
	return e.order(cfg, prof, batch, len(batch), e.now(), false)
}

// RecordFeedback accumulates a bounded bias for a topic and/or domain.
func (e *Engine) RecordFeedback(f types.Feedback) {
	lim := e.cfg.Load().FeedbackClamp

	e.fbMu.Lock()
	defer e.fbMu.Unlock()
	if f.Topic != "" {
		key := "topic:" + f.Topic
		e.feedback[key] = clamp(e.feedback[key]+f.Delta, lim)
	}
	if f.Domain != "" {
		key := "domain:" + f.Domain
		e.feedback[key] = clamp(e.feedback[key]+f.Delta, lim)
	}
}

func (e *Engine) feedbackBias(topic Topic, domain string, lim float64) float64 {
	e.fbMu.Lock()
	defer e.fbMu.Unlock()
	return clamp(e.feedback["topic:"+string(topic)]+e.feedback["domain:"+domain], lim)
}

type candidate struct {
	article types.Article
	score   float64 // composite, shown to clients
	order   float64 // composite plus diversity and exploration adjustments
	rolled  bool
}

func (e *Engine) order(cfg *Config, prof Profile, batch []types.Article, k int, now time.Time, withFatigue bool) []types.Article {
	if len(batch) == 0 || k <= 0 {
		return []types.Article{}
	}

	// Domains reporting each cluster, for cross-confirmation.
	reporters := make(map[string]map[string]struct{})
	for i := range batch {
		c := batch[i].ClusterID
		if c == "" {
			continue
		}
		if reporters[c] == nil {
			reporters[c] = make(map[string]struct{})
		}
		reporters[c][batch[i].Domain] = struct{}{}
	}

	w := prof.Weights.normalized()
	cands := make([]*candidate, 0, len(batch))
	for i := range batch {
		a := batch[i].Clone()
		if a.HasTimestamp() {
			a.AgeMinutes = math.Max(0, now.Sub(a.PublishedAt).Minutes())
		}

		s := e.signals(cfg, prof, &a, len(reporters[a.ClusterID]) >= 2)
		score := w.Freshness*s.Freshness +
			w.Velocity*s.Velocity +
			w.Engagement*s.Engagement +
			w.Trust*s.Trust +
			w.Urgency*s.Urgency +
			w.Locale*s.LocaleMatch

		topic := cfg.topic(&a)
		score += cfg.dayTopicAdjustment(topic, now)
		score += e.feedbackBias(topic, a.Domain, cfg.FeedbackClamp)
		if withFatigue {
			score -= cfg.fatiguePenalty(e.fatigue, a.ClusterID, now)
		}

		a.Score = math.Round(score*1e4) / 1e4
		a.Rating = cfg.Rating.project(score)
		a.Tags = cfg.Tags(&a)
		cands = append(cands, &candidate{article: a, score: score, order: score})
	}

	return e.diversify(cfg, cands, k)
}

func (e *Engine) signals(cfg *Config, prof Profile, a *types.Article, crossConfirmed bool) Signals {
	text := a.Title + " " + a.Description
	s := Signals{
		Freshness:  freshness(a.AgeMinutes, prof.HalfLifeMinutes),
		Velocity:   velocity(a.EngagementCount, a.AgeMinutes, cfg.VelocityK),
		Engagement: engagementRatio(a.EngagementCount, a.FollowerCount, cfg.EngagementDamping),
		Trust:      cfg.trust(a.TrustDomain(), crossConfirmed),
	}
	if cfg.Urgent.Match(text) {
		s.Urgency = 1
	}
	if prof.allowsLanguage(a.Language) {
		s.LocaleMatch = 1
	}
	return s
}

// diversify walks the candidates best-first building the accepted list.
// Each time a domain or cluster reaches its threshold the rest of that
// domain or cluster is pushed down and the remainder re-sorted.
func (e *Engine) diversify(cfg *Config, remaining []*candidate, k int) []types.Article {
	sortCandidates(remaining)

	accepted := make([]types.Article, 0, min(k, len(remaining)))
	domainCount := make(map[string]int)
	clusterCount := make(map[string]int)
	seenDomain := make(map[string]struct{})

	for len(remaining) > 0 && len(accepted) < k {
		if len(accepted) > 0 && e.explore(cfg, remaining, seenDomain) {
			sortCandidates(remaining)
		}

		next := remaining[0]
		remaining = remaining[1:]
		accepted = append(accepted, next.article)

		domain, cluster := next.article.Domain, next.article.ClusterID
		seenDomain[domain] = struct{}{}
		domainCount[domain]++
		if cluster != "" {
			clusterCount[cluster]++
		}

		resort := false
		if domainCount[domain] >= cfg.DomainThreshold {
			resort = penalize(remaining, cfg.DiversityPenalty, func(c *candidate) bool {
				return c.article.Domain == domain
			}) || resort
		}
		if cluster != "" && clusterCount[cluster] >= cfg.ClusterThreshold {
			resort = penalize(remaining, cfg.DiversityPenalty, func(c *candidate) bool {
				return c.article.ClusterID == cluster
			}) || resort
		}
		if resort {
			sortCandidates(remaining)
		}
	}
	return accepted
}

// explore gives each not-yet-rolled candidate from an unseen domain one
// chance at a small bonus. It reports whether any bonus was applied.
func (e *Engine) explore(cfg *Config, remaining []*candidate, seen map[string]struct{}) bool {
	if cfg.ExploreChance <= 0 {
		return false
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	applied := false
	for _, c := range remaining {
		if c.rolled {
			continue
		}
		if _, ok := seen[c.article.Domain]; ok {
			continue
		}
		c.rolled = true
		if e.random() < cfg.ExploreChance {
			c.order += cfg.ExploreBonus
			applied = true
		}
	}
	return applied
}

func penalize(cands []*candidate, penalty float64, match func(*candidate) bool) bool {
	hit := false
	for _, c := range cands {
		if match(c) {
			c.order -= penalty
			hit = true
		}
	}
	return hit
}

func sortCandidates(cands []*candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].order != cands[j].order {
			return cands[i].order > cands[j].order
		}
		return cands[i].article.ID < cands[j].article.ID
	})
}
