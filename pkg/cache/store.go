// Package cache implements the semantic query cache. Results of resolved
// queries are stored per user together with the embedding of the question
// that produced them; later questions that embed close enough to a stored
// one are answered from the cache without touching the generator or the
// target database.
//
// The cache is an accelerator, never a gate: any store failure degrades to
// a miss (on lookup) or a no-op (on write) and is logged, so the pipeline
// keeps working with the cache down.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sayandkrishna/querypilot/pkg/models"
)

// Store is the persistence seam for cache entries. Implementations must
// scope everything by owner so users never see each other's entries.
type Store interface {
	// Entries returns all live entries for the owner. Expired entries are
	// not returned.
	Entries(ctx context.Context, owner string) ([]*models.CacheEntry, error)
	// Put writes an entry under the given key with the given TTL,
	// replacing any existing entry at that key.
	Put(ctx context.Context, owner, key string, entry *models.CacheEntry, ttl time.Duration) error
	// Clear removes all entries for the owner and returns how many were
	// removed.
	Clear(ctx context.Context, owner string) (int, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// EntryKey derives the storage key for a query text. The same text always
// maps to the same key, so re-asking an exact question overwrites its entry
// instead of accumulating duplicates.
func EntryKey(queryText string) string {
	sum := sha256.Sum256([]byte(queryText))
	return hex.EncodeToString(sum[:])[:16]
}
