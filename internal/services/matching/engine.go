package matching

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

// ScoreBreakdown carries the per-criterion scores behind a composite score.
type ScoreBreakdown struct {
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Vendor    float64 `json:"vendor"`
	Reference float64 `json:"reference"`
	Composite float64 `json:"composite"`
}

// DocumentMatch is one ranked candidate document for a transaction.
type DocumentMatch struct {
	Document  models.Document `json:"document"`
	Score     float64         `json:"score"`
	Breakdown ScoreBreakdown  `json:"breakdown"`
}

// ConfidenceTier buckets combination scores for reviewers.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

func tierFor(score float64) ConfidenceTier {
	switch {
	case score > 0.7:
		return ConfidenceHigh
	case score >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MultipleDocumentMatch is a set of documents jointly matching one
// transaction, e.g. a single transfer paying several invoices.
type MultipleDocumentMatch struct {
	Documents      []models.Document `json:"documents"`
	Score          float64           `json:"score"`
	CombinedAmount decimal.Decimal   `json:"combined_amount"`
	Breakdown      ScoreBreakdown    `json:"breakdown"`
	Warnings       []string          `json:"warnings,omitempty"`
	Confidence     ConfidenceTier    `json:"confidence"`
	ReferenceHits  int               `json:"reference_hits"`
	Strategy       string            `json:"strategy"`
}

// Matcher is the ranking surface of the engine. The cache decorator
// implements the same interface around a real Engine.
type Matcher interface {
	Rank(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]DocumentMatch, error)
	RankBatch(ctx context.Context, txs []models.Transaction, pool []models.Document) (map[uuid.UUID][]DocumentMatch, error)
	FindCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]MultipleDocumentMatch, error)
}

// Engine scores transactions against candidate documents. All scoring is
// pure; an Engine is safe for concurrent use.
type Engine struct {
	cfg *Config
}

// NewEngine validates the configuration and returns a ready engine.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg.Clone()}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// Score computes the full breakdown for one transaction/document pair.
func (e *Engine) Score(tx *models.Transaction, doc *models.Document) ScoreBreakdown {
	b := ScoreBreakdown{
		Amount:    e.scoreAmount(tx, doc),
		Date:      e.scoreDate(tx, doc),
		Vendor:    e.scoreVendor(tx, doc),
		Reference: e.scoreReference(tx, doc),
	}
	b.Composite = e.composite(b)
	return b
}

// composite is the weighted sum of the criterion scores with the bonus
// multiplier applied when any single criterion is exceptionally strong.
// Deterministic: identical breakdowns always yield the same result.
func (e *Engine) composite(b ScoreBreakdown) float64 {
	w := e.cfg.Weights
	score := b.Amount*w.Amount + b.Date*w.Date + b.Vendor*w.Vendor + b.Reference*w.Reference

	if b.Amount >= e.cfg.BonusThreshold || b.Date >= e.cfg.BonusThreshold ||
		b.Vendor >= e.cfg.BonusThreshold || b.Reference >= e.cfg.BonusThreshold {
		score *= e.cfg.BonusMultiplier
	}
	return clamp01(score)
}

// Rank scores the transaction against every candidate in the pool, drops
// scores below the minimum and returns the rest in descending order.
// Ties keep pool order (stable sort).
func (e *Engine) Rank(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]DocumentMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]DocumentMatch, 0, len(pool))
	for i := range pool {
		doc := &pool[i]
		if unconnectedOnly && doc.Connected {
			continue
		}
		b := e.Score(tx, doc)
		if b.Composite < e.cfg.MinimumMatchScore {
			continue
		}
		matches = append(matches, DocumentMatch{Document: *doc, Score: b.Composite, Breakdown: b})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// batchWorkers bounds the per-transaction parallelism of RankBatch.
const batchWorkers = 8

// RankBatch ranks many transactions against one shared pool snapshot.
// Results are identical to calling Rank per transaction; the pool is
// read-only for the whole batch, so workers need no locking.
func (e *Engine) RankBatch(ctx context.Context, txs []models.Transaction, pool []models.Document) (map[uuid.UUID][]DocumentMatch, error) {
	results := make([][]DocumentMatch, len(txs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i := range txs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches, err := e.Rank(gctx, &txs[i], pool, false)
			if err != nil {
				return err
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]DocumentMatch, len(txs))
	for i := range txs {
		out[txs[i].ID] = results[i]
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
