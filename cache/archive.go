package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"emarknews/common"
	"emarknews/types"
)

// ObjectStore is the slice of S3 the archive needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Archive keeps the latest full document of every category in object
// storage so a cold process can serve something before its first cycle.
type Archive struct {
	objects ObjectStore
}

func NewArchive(objects ObjectStore) *Archive {
	return &Archive{objects: objects}
}

func snapshotKey(category string) string {
	return fmt.Sprintf("snapshots/%s/latest.json", category)
}

// Save uploads entry as the category's latest snapshot.
func (a *Archive) Save(ctx context.Context, entry types.CacheEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return a.objects.Put(ctx, snapshotKey(entry.Category), body)
}

// Latest returns the stored snapshot; found is false when none exists.
func (a *Archive) Latest(ctx context.Context, category string) (entry types.CacheEntry, found bool, err error) {
	body, err := a.objects.Get(ctx, snapshotKey(category))
	if errors.Is(err, common.ErrObjectNotFound) {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, err
	}
	if err := json.Unmarshal(body, &entry); err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("%w: snapshot %s: %v", ErrMalformed, category, err)
	}
	return entry, true, nil
}
