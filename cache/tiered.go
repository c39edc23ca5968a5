package cache

import (
	"context"
	"encoding/json"
	"time"

	"emarknews/types"

	"go.uber.org/zap"
)

// TTLPolicy decides how long each tier stays fresh. Only the full tier
// has a stale window.
type TTLPolicy struct {
	FastTTL     time.Duration
	FullTTL     time.Duration
	StaleWindow time.Duration
}

func (p TTLPolicy) forTier(tier types.Tier) (ttl, stale time.Duration) {
	if tier == types.TierFull {
		return p.FullTTL, p.StaleWindow
	}
	return p.FastTTL, 0
}

// TieredCache stores category documents in the fast and full tiers.
type TieredCache struct {
	store  *Store
	policy TTLPolicy
	logger *zap.Logger
}

func NewTieredCache(store *Store, policy TTLPolicy, logger *zap.Logger) *TieredCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredCache{store: store, policy: policy, logger: logger}
}

// Lookup returns the category document stored in tier.
func (t *TieredCache) Lookup(ctx context.Context, category string, tier types.Tier) (types.CacheEntry, Freshness) {
	key := types.CacheKey(category, tier)
	raw, freshness := t.store.Get(ctx, key)
	if freshness == Miss {
		return types.CacheEntry{}, Miss
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Category != category {
		t.logger.Warn("evicting undecodable category document", zap.String("key", key), zap.Error(err))
		t.store.Delete(ctx, key)
		return types.CacheEntry{}, Miss
	}
	entry.Stale = freshness == Stale
	return entry, freshness
}

// Put writes entry into tier, guarded by entry.Sequence.
func (t *TieredCache) Put(ctx context.Context, tier types.Tier, entry types.CacheEntry) bool {
	entry.Stale = false
	raw, err := json.Marshal(entry)
	if err != nil {
		t.logger.Error("failed to encode category document", zap.String("category", entry.Category), zap.Error(err))
		return false
	}
	ttl, stale := t.policy.forTier(tier)
	return t.store.Set(ctx, types.CacheKey(entry.Category, tier), raw, entry.Sequence, ttl, stale)
}

// PutStale seeds the full tier with an entry that is already past its
// fresh window, so it is served immediately and refreshed in the background.
func (t *TieredCache) PutStale(ctx context.Context, entry types.CacheEntry) bool {
	entry.Stale = false
	raw, err := json.Marshal(entry)
	if err != nil {
		return false
	}
	return t.store.Set(ctx, types.CacheKey(entry.Category, types.TierFull), raw, entry.Sequence, 0, t.policy.StaleWindow)
}

// Invalidate drops both tiers of one category.
func (t *TieredCache) Invalidate(ctx context.Context, category string) {
	t.store.Delete(ctx, types.CacheKey(category, types.TierFast), types.CacheKey(category, types.TierFull))
}

// Clear drops every category.
func (t *TieredCache) Clear(ctx context.Context) {
	t.store.Clear(ctx)
}
