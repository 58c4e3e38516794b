package matching

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

const (
	maxCombinationSize    = 5
	hybridMaxSize         = 4
	maxCombinationResults = 10

	strategyReference = "reference"
	strategyAmount    = "amount"
	strategyHybrid    = "hybrid"

	referenceStrategyBonus = 1.2
	hybridStrategyBonus    = 1.1
)

// FindCombinations searches for sets of 2 to 5 documents that jointly match
// one transaction, e.g. a single transfer paying several invoices. Three
// strategies run independently; their results are deduplicated by document
// set and the top results returned in descending score order.
func (e *Engine) FindCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]MultipleDocumentMatch, error) {
	candidates := make([]models.Document, 0, len(pool))
	for i := range pool {
		if unconnectedOnly && pool[i].Connected {
			continue
		}
		candidates = append(candidates, pool[i])
	}
	if len(candidates) < 2 {
		return []MultipleDocumentMatch{}, nil
	}

	var found []MultipleDocumentMatch

	refMatches, err := e.referenceCombinations(ctx, tx, candidates)
	if err != nil {
		return nil, err
	}
	found = append(found, refMatches...)

	amountMatches, err := e.amountCombinations(ctx, tx, candidates)
	if err != nil {
		return nil, err
	}
	found = append(found, amountMatches...)

	hybridMatches, err := e.hybridCombinations(ctx, tx, candidates)
	if err != nil {
		return nil, err
	}
	found = append(found, hybridMatches...)

	found = dedupeCombinations(found)

	kept := found[:0]
	for _, m := range found {
		if m.Score >= e.cfg.MinimumMatchScore {
			kept = append(kept, m)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > maxCombinationResults {
		kept = kept[:maxCombinationResults]
	}
	return kept, nil
}

// referenceCombinations collects documents whose invoice number matches one
// of the reference tokens embedded in the transaction note. At least two
// matching documents are required; the hit earns a 20% score bonus.
func (e *Engine) referenceCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document) ([]MultipleDocumentMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := extractReferenceTokens(tx.Note)
	if len(tokens) == 0 {
		return nil, nil
	}

	var matched []models.Document
	for i := range pool {
		number := normalizeReference(pool[i].InvoiceNumber)
		if number == "" {
			continue
		}
		for _, tok := range tokens {
			if number == tok || strings.Contains(number, tok) || strings.Contains(tok, number) {
				matched = append(matched, pool[i])
				break
			}
		}
		if len(matched) == maxCombinationSize {
			break
		}
	}
	if len(matched) < 2 {
		return nil, nil
	}

	m := e.buildCombination(tx, matched, strategyReference)
	m.ReferenceHits = len(matched)
	m.Score = clamp01(m.Score * referenceStrategyBonus)
	m.Breakdown.Composite = m.Score
	m.Confidence = tierFor(m.Score)
	return []MultipleDocumentMatch{m}, nil
}

// amountCombinations enumerates document subsets per size and keeps those
// whose combined amount is similar to the transaction amount. Enumeration
// is capped per size to keep latency bounded, trading completeness for
// predictable runtime.
func (e *Engine) amountCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document) ([]MultipleDocumentMatch, error) {
	txAmount := tx.GrossAmount()
	if txAmount.IsZero() {
		return nil, nil
	}

	// Only documents that could plausibly be part of the sum.
	limit := txAmount.Mul(decimal.NewFromFloat(1 + e.cfg.Amount.Medium))
	var docs []models.Document
	for i := range pool {
		amount, ok := pool[i].EffectiveAmount()
		if !ok || amount.Abs().GreaterThan(limit) {
			continue
		}
		docs = append(docs, pool[i])
		if len(docs) == e.cfg.MaxCombinationDocs {
			break
		}
	}

	var found []MultipleDocumentMatch
	maxSize := min(maxCombinationSize, len(docs))
	for size := 2; size <= maxSize; size++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		enumerateCombinations(len(docs), size, e.cfg.MaxCombinationsPerSize, func(idx []int) {
			subset := pickDocuments(docs, idx)
			if e.amountBandScore(combinedAmount(subset), txAmount) < e.cfg.MinimumMatchScore {
				return
			}
			found = append(found, e.buildCombination(tx, subset, strategyAmount))
		})
	}
	return found, nil
}

// hybridCombinations restricts the pool to documents with an individual
// reference signal, then enumerates smaller subsets requiring both amount
// and reference agreement. Matches earn a 10% bonus.
func (e *Engine) hybridCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document) ([]MultipleDocumentMatch, error) {
	var docs []models.Document
	for i := range pool {
		if e.scoreReference(tx, &pool[i]) >= 0.3 {
			docs = append(docs, pool[i])
		}
		if len(docs) == e.cfg.MaxCombinationDocs {
			break
		}
	}

	var found []MultipleDocumentMatch
	maxSize := min(hybridMaxSize, len(docs))
	for size := 2; size <= maxSize; size++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		enumerateCombinations(len(docs), size, e.cfg.MaxCombinationsPerSize, func(idx []int) {
			subset := pickDocuments(docs, idx)
			m := e.buildCombination(tx, subset, strategyHybrid)
			if m.Breakdown.Amount < 0.4 || m.Breakdown.Reference < 0.4 {
				return
			}
			m.ReferenceHits = len(subset)
			m.Score = clamp01(m.Score * hybridStrategyBonus)
			m.Breakdown.Composite = m.Score
			m.Confidence = tierFor(m.Score)
			found = append(found, m)
		})
	}
	return found, nil
}

// buildCombination scores a document set: the amount criterion runs against
// the combined total, date and vendor are averaged over the member
// documents, reference is averaged as the share of referenced documents.
func (e *Engine) buildCombination(tx *models.Transaction, docs []models.Document, strategy string) MultipleDocumentMatch {
	total := combinedAmount(docs)

	var dateSum, vendorSum, refSum float64
	for i := range docs {
		dateSum += e.scoreDate(tx, &docs[i])
		vendorSum += e.scoreVendor(tx, &docs[i])
		refSum += e.scoreReference(tx, &docs[i])
	}
	n := float64(len(docs))

	b := ScoreBreakdown{
		Amount:    e.amountBandScore(total, tx.GrossAmount()),
		Date:      dateSum / n,
		Vendor:    vendorSum / n,
		Reference: refSum / n,
	}
	b.Composite = e.composite(b)

	return MultipleDocumentMatch{
		Documents:      docs,
		Score:          b.Composite,
		CombinedAmount: total,
		Breakdown:      b,
		Warnings:       e.overageWarnings(tx.GrossAmount(), total, docs),
		Confidence:     tierFor(b.Composite),
		Strategy:       strategy,
	}
}

// dedupeCombinations removes entries with identical document id sets,
// keeping the highest-scoring instance.
func dedupeCombinations(matches []MultipleDocumentMatch) []MultipleDocumentMatch {
	best := make(map[string]int, len(matches))
	var out []MultipleDocumentMatch
	for _, m := range matches {
		key := documentSetKey(m.Documents)
		if i, ok := best[key]; ok {
			if m.Score > out[i].Score {
				out[i] = m
			}
			continue
		}
		best[key] = len(out)
		out = append(out, m)
	}
	return out
}

func documentSetKey(docs []models.Document) string {
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

func pickDocuments(docs []models.Document, idx []int) []models.Document {
	subset := make([]models.Document, len(idx))
	for i, j := range idx {
		subset[i] = docs[j]
	}
	return subset
}

// enumerateCombinations walks k-element index subsets of [0, n) in
// lexicographic order, calling fn for each until limit subsets were visited.
// Iterative by design: no recursion, the cap is enforced in one place.
func enumerateCombinations(n, k, limit int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	for visited := 0; visited < limit; visited++ {
		fn(idx)

		// advance to the next subset
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
