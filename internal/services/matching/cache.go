package matching

import (
	"context"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

// Default TTLs per result kind.
const (
	SingleRankingTTL = 30 * time.Minute
	BatchRankingTTL  = 45 * time.Minute
	CombinationTTL   = 20 * time.Minute
)

type rankEntry struct {
	matches []DocumentMatch
	expires time.Time
}

type comboEntry struct {
	matches []MultipleDocumentMatch
	expires time.Time
}

type batchEntry struct {
	results map[uuid.UUID][]DocumentMatch
	txIDs   map[uuid.UUID]bool
	expires time.Time
}

// Cache is a read-through decorator around a Matcher. Entries expire by TTL
// and are dropped explicitly when an attachment for a transaction is created
// or removed. Safe for concurrent use.
type Cache struct {
	inner Matcher

	singleTTL time.Duration
	batchTTL  time.Duration
	comboTTL  time.Duration

	mu      sync.RWMutex
	ranks   map[string]rankEntry
	combos  map[string]comboEntry
	batches map[uint64]batchEntry

	now func() time.Time
}

// NewCache wraps a Matcher with the default TTLs.
func NewCache(inner Matcher) *Cache {
	return &Cache{
		inner:     inner,
		singleTTL: SingleRankingTTL,
		batchTTL:  BatchRankingTTL,
		comboTTL:  CombinationTTL,
		ranks:     make(map[string]rankEntry),
		combos:    make(map[string]comboEntry),
		batches:   make(map[uint64]batchEntry),
		now:       time.Now,
	}
}

func rankKey(txID uuid.UUID, unconnectedOnly bool) string {
	return txID.String() + "|" + strconv.FormatBool(unconnectedOnly)
}

// poolKey hashes the sorted document id set of a batch pool.
func poolKey(pool []models.Document) uint64 {
	ids := make([]string, len(pool))
	for i := range pool {
		ids[i] = pool[i].ID.String()
	}
	sort.Strings(ids)

	h := fnv.New64a()
	for _, id := range ids {
		h.Write([]byte(id))
	}
	return h.Sum64()
}

// Rank serves a cached ranking when fresh, otherwise delegates and stores.
func (c *Cache) Rank(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]DocumentMatch, error) {
	key := rankKey(tx.ID, unconnectedOnly)

	c.mu.RLock()
	entry, ok := c.ranks[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return copyRanking(entry.matches), nil
	}

	matches, err := c.inner.Rank(ctx, tx, pool, unconnectedOnly)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.ranks[key] = rankEntry{matches: matches, expires: c.now().Add(c.singleTTL)}
	c.mu.Unlock()
	return copyRanking(matches), nil
}

// RankBatch caches by the document pool signature.
func (c *Cache) RankBatch(ctx context.Context, txs []models.Transaction, pool []models.Document) (map[uuid.UUID][]DocumentMatch, error) {
	key := poolKey(pool)

	c.mu.RLock()
	entry, ok := c.batches[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) && coversAll(entry.txIDs, txs) {
		return copyBatch(entry.results), nil
	}

	results, err := c.inner.RankBatch(ctx, txs, pool)
	if err != nil {
		return nil, err
	}

	txIDs := make(map[uuid.UUID]bool, len(txs))
	for i := range txs {
		txIDs[txs[i].ID] = true
	}

	c.mu.Lock()
	c.batches[key] = batchEntry{results: results, txIDs: txIDs, expires: c.now().Add(c.batchTTL)}
	c.mu.Unlock()
	return copyBatch(results), nil
}

// FindCombinations serves cached combination results per transaction.
func (c *Cache) FindCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]MultipleDocumentMatch, error) {
	key := rankKey(tx.ID, unconnectedOnly)

	c.mu.RLock()
	entry, ok := c.combos[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return copyCombos(entry.matches), nil
	}

	matches, err := c.inner.FindCombinations(ctx, tx, pool, unconnectedOnly)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.combos[key] = comboEntry{matches: matches, expires: c.now().Add(c.comboTTL)}
	c.mu.Unlock()
	return copyCombos(matches), nil
}

// InvalidateTransaction drops every entry keyed by the transaction, plus any
// batch result that covered it. Called after each attach or detach.
func (c *Cache) InvalidateTransaction(txID uuid.UUID) {
	prefix := txID.String() + "|"

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.ranks, prefix+"true")
	delete(c.ranks, prefix+"false")
	delete(c.combos, prefix+"true")
	delete(c.combos, prefix+"false")
	for key, entry := range c.batches {
		if entry.txIDs[txID] {
			delete(c.batches, key)
		}
	}
}

// Callers sort and filter the returned slices, so every read hands out a
// fresh copy and the stored entries stay untouched.
func copyRanking(src []DocumentMatch) []DocumentMatch {
	out := make([]DocumentMatch, len(src))
	copy(out, src)
	return out
}

func copyCombos(src []MultipleDocumentMatch) []MultipleDocumentMatch {
	out := make([]MultipleDocumentMatch, len(src))
	copy(out, src)
	return out
}

func copyBatch(src map[uuid.UUID][]DocumentMatch) map[uuid.UUID][]DocumentMatch {
	out := make(map[uuid.UUID][]DocumentMatch, len(src))
	for id, matches := range src {
		out[id] = copyRanking(matches)
	}
	return out
}

func coversAll(have map[uuid.UUID]bool, txs []models.Transaction) bool {
	if len(have) != len(txs) {
		return false
	}
	for i := range txs {
		if !have[txs[i].ID] {
			return false
		}
	}
	return true
}
