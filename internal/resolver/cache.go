package resolver

import (
	"context"
	"fmt"

	"github.com/desertthunder/subsync/internal/library"
)

// Store persists resolved ids back into the host library.
type Store interface {
	SetSubsonicID(itemID int64, subsonicID string) error
}

// ItemResolver abstracts the strategy-chain resolver for the cache.
type ItemResolver interface {
	Resolve(ctx context.Context, item *library.Item) (Result, error)
}

// Cache wraps a resolver with the library's persisted id cache.
//
// Only successful matches are cached; NotFound and Ambiguous results
// are resolved again on the next run, since remote catalog content may
// have changed in the meantime.
type Cache struct {
	resolver ItemResolver
	store    Store
}

// NewCache creates a Cache around a resolver and a store.
func NewCache(resolver ItemResolver, store Store) *Cache {
	return &Cache{resolver: resolver, store: store}
}

// GetOrResolve returns the cached id for an item as an immediate match,
// or falls through to the resolver. With force set, the cache is
// bypassed and a successful resolution overwrites the stored id.
// Transient items (ID 0) are resolved but never written back.
func (c *Cache) GetOrResolve(ctx context.Context, item *library.Item, force bool) (Result, error) {
	if !force && item.SubsonicID != "" {
		return Result{
			State: Matched,
			Candidate: &Candidate{
				ID:       item.SubsonicID,
				Title:    item.Title,
				Artist:   item.Artist,
				Album:    item.Album,
				Strategy: "cache",
			},
		}, nil
	}

	result, err := c.resolver.Resolve(ctx, item)
	if err != nil {
		return Result{}, err
	}

	if result.State == Matched && item.ID != 0 {
		if err := c.store.SetSubsonicID(item.ID, result.Candidate.ID); err != nil {
			return Result{}, fmt.Errorf("failed to cache id for %s: %w", item.Name(), err)
		}
		item.SubsonicID = result.Candidate.ID
	}

	return result, nil
}
