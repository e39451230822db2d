package models

import "time"

// CacheEntry is one stored answer in a user's semantic cache namespace.
// Entries are keyed for lookup by owner + embedding proximity, not by exact
// text; near-duplicates coexist. Hit counters are approximate: concurrent
// hits may lose the occasional update.
type CacheEntry struct {
	Owner         string       `json:"owner"`
	QueryText     string       `json:"query_text"`
	Embedding     []float32    `json:"embedding"`
	SQLQuery      string       `json:"sql_query"`
	Result        *QueryResult `json:"result"`
	CreatedAt     time.Time    `json:"created_at"`
	HitCount      int          `json:"hit_count"`
	LastAccessed  time.Time    `json:"last_accessed"`
	SimilaritySum float64      `json:"similarity_sum"` // accumulated over hits, for stats
}

// CacheStats summarizes one user's cache namespace.
type CacheStats struct {
	EntryCount          int     `json:"entry_count"`
	HitCountTotal       int     `json:"hit_count_total"`
	AvgSimilarityOnHits float64 `json:"avg_similarity_on_hits"`
}
