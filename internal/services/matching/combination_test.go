package matching

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

func TestFindCombinationsAmountOnly(t *testing.T) {
	e := newTestEngine(t)

	// One payment of 100.00 covering two invoices with unrelated invoice
	// numbers: only the amount strategy can find this split.
	tx := &models.Transaction{
		ID:              uuid.New(),
		Amount:          dec("-100.00"),
		TransactionDate: mustDate("2024-03-15"),
		Note:            "monthly settlement",
	}
	pool := []models.Document{
		{ID: uuid.New(), Total: decPtr("47.60"), InvoiceNumber: "A-111"},
		{ID: uuid.New(), Total: decPtr("52.40"), InvoiceNumber: "B-222"},
	}

	combos, err := e.FindCombinations(context.Background(), tx, pool, false)
	require.NoError(t, err)
	require.NotEmpty(t, combos)

	best := combos[0]
	assert.Len(t, best.Documents, 2)
	assert.Equal(t, strategyAmount, best.Strategy)
	assert.InDelta(t, 1.0, best.Breakdown.Amount, 0.0001)
	assert.True(t, best.CombinedAmount.Equal(dec("100.00")))
}

func TestFindCombinationsReferenceStrategy(t *testing.T) {
	e := newTestEngine(t)

	tx := &models.Transaction{
		ID:              uuid.New(),
		Amount:          dec("-300.00"),
		TransactionDate: mustDate("2024-03-15"),
		Note:            "paying INV-100 and INV-200",
	}
	pool := []models.Document{
		{ID: uuid.New(), Total: decPtr("120.00"), InvoiceNumber: "INV-100", InvoiceDate: datePtr("2024-03-14")},
		{ID: uuid.New(), Total: decPtr("180.00"), InvoiceNumber: "INV-200", InvoiceDate: datePtr("2024-03-14")},
		{ID: uuid.New(), Total: decPtr("999.00"), InvoiceNumber: "INV-999"},
	}

	combos, err := e.FindCombinations(context.Background(), tx, pool, false)
	require.NoError(t, err)
	require.NotEmpty(t, combos)

	best := combos[0]
	assert.Len(t, best.Documents, 2)
	assert.Equal(t, 2, best.ReferenceHits)
	assert.True(t, best.CombinedAmount.Equal(dec("300.00")))
	assert.Equal(t, ConfidenceHigh, best.Confidence)
}

func TestFindCombinationsDedup(t *testing.T) {
	e := newTestEngine(t)

	// Both the reference and the amount strategy find the same pair; the
	// output must contain the document set only once.
	tx := &models.Transaction{
		ID:              uuid.New(),
		Amount:          dec("-100.00"),
		TransactionDate: mustDate("2024-03-15"),
		Note:            "INV-100 INV-200",
	}
	pool := []models.Document{
		{ID: uuid.New(), Total: decPtr("40.00"), InvoiceNumber: "INV-100"},
		{ID: uuid.New(), Total: decPtr("60.00"), InvoiceNumber: "INV-200"},
	}

	combos, err := e.FindCombinations(context.Background(), tx, pool, false)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, m := range combos {
		key := documentSetKey(m.Documents)
		assert.False(t, seen[key], "duplicate document set %s", key)
		seen[key] = true
	}
}

func TestFindCombinationsOverageWarning(t *testing.T) {
	e := newTestEngine(t)

	// Combined total 112 against a 100 transaction: close enough to rank
	// via the reference strategy but past the 10% overage threshold.
	tx := &models.Transaction{
		ID:     uuid.New(),
		Amount: dec("-100.00"),
		Note:   "INV-100 INV-200",
	}
	pool := []models.Document{
		{ID: uuid.New(), Total: decPtr("56.00"), InvoiceNumber: "INV-100"},
		{ID: uuid.New(), Total: decPtr("56.00"), InvoiceNumber: "INV-200"},
	}

	combos, err := e.FindCombinations(context.Background(), tx, pool, false)
	require.NoError(t, err)
	require.NotEmpty(t, combos)

	var found bool
	for _, w := range combos[0].Warnings {
		if w != "" {
			found = true
		}
	}
	assert.True(t, found, "expected an overage warning, got %v", combos[0].Warnings)
}

func TestFindCombinationsRespectsResultLimit(t *testing.T) {
	e := newTestEngine(t)

	tx := &models.Transaction{ID: uuid.New(), Amount: dec("-100.00")}
	var pool []models.Document
	for i := 0; i < 12; i++ {
		pool = append(pool, models.Document{
			ID:            uuid.New(),
			Total:         decPtr("50.00"),
			InvoiceNumber: fmt.Sprintf("D-%03d", i),
		})
	}

	combos, err := e.FindCombinations(context.Background(), tx, pool, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(combos), maxCombinationResults)
	for i := 1; i < len(combos); i++ {
		assert.LessOrEqual(t, combos[i].Score, combos[i-1].Score)
	}
	for _, m := range combos {
		assert.GreaterOrEqual(t, m.Score, e.cfg.MinimumMatchScore)
		assert.GreaterOrEqual(t, len(m.Documents), 2)
		assert.LessOrEqual(t, len(m.Documents), maxCombinationSize)
	}
}

func TestFindCombinationsSkipsConnectedDocuments(t *testing.T) {
	e := newTestEngine(t)

	tx := &models.Transaction{ID: uuid.New(), Amount: dec("-100.00")}
	pool := []models.Document{
		{ID: uuid.New(), Total: decPtr("50.00"), Connected: true},
		{ID: uuid.New(), Total: decPtr("50.00")},
	}

	combos, err := e.FindCombinations(context.Background(), tx, pool, true)
	require.NoError(t, err)
	assert.Empty(t, combos)
}

func TestFindCombinationsSmallPool(t *testing.T) {
	e := newTestEngine(t)

	tx := &models.Transaction{ID: uuid.New(), Amount: dec("-100.00")}
	combos, err := e.FindCombinations(context.Background(), tx, []models.Document{{ID: uuid.New(), Total: decPtr("100.00")}}, false)
	require.NoError(t, err)
	assert.Empty(t, combos)
}

func TestFindCombinationsCancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := &models.Transaction{ID: uuid.New(), Amount: dec("-100.00")}
	pool := []models.Document{
		{ID: uuid.New(), Total: decPtr("50.00")},
		{ID: uuid.New(), Total: decPtr("50.00")},
	}
	_, err := e.FindCombinations(ctx, tx, pool, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnumerateCombinations(t *testing.T) {
	var got [][]int
	enumerateCombinations(4, 2, 100, func(idx []int) {
		cp := make([]int, len(idx))
		copy(cp, idx)
		got = append(got, cp)
	})

	expected := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	assert.Equal(t, expected, got)
}

func TestEnumerateCombinationsCap(t *testing.T) {
	count := 0
	enumerateCombinations(10, 3, 5, func([]int) { count++ })
	assert.Equal(t, 5, count)
}

func TestEnumerateCombinationsDegenerate(t *testing.T) {
	count := 0
	enumerateCombinations(2, 3, 10, func([]int) { count++ })
	assert.Zero(t, count)
	enumerateCombinations(3, 0, 10, func([]int) { count++ })
	assert.Zero(t, count)
}
