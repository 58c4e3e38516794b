package matching

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

func perfectDoc() models.Document {
	return models.Document{
		ID:            uuid.New(),
		Total:         decPtr("238.00"),
		InvoiceDate:   datePtr("2024-03-15"),
		VendorName:    "Acme GmbH",
		InvoiceNumber: "INV-4711",
	}
}

func perfectTx() *models.Transaction {
	return &models.Transaction{
		ID:              uuid.New(),
		Amount:          dec("-238.00"),
		TransactionDate: mustDate("2024-03-15"),
		Counterparty:    "Acme GmbH",
		Note:            "INV-4711",
		Outgoing:        true,
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Amount = 5.0

	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScorePerfectMatchClampsToOne(t *testing.T) {
	e := newTestEngine(t)
	doc := perfectDoc()

	b := e.Score(perfectTx(), &doc)

	assert.InDelta(t, 1.0, b.Amount, 0.0001)
	assert.InDelta(t, 1.0, b.Date, 0.0001)
	assert.InDelta(t, 1.0, b.Vendor, 0.0001)
	assert.InDelta(t, 1.0, b.Reference, 0.0001)
	// weighted sum 1.0 boosted by the bonus multiplier, clamped to 1.0
	assert.Equal(t, 1.0, b.Composite)
}

func TestCompositeScoreBounds(t *testing.T) {
	e := newTestEngine(t)
	tx := perfectTx()

	docs := []models.Document{
		perfectDoc(),
		{ID: uuid.New()},
		{ID: uuid.New(), Total: decPtr("240.00"), VendorName: "Acme GmbH"},
		{ID: uuid.New(), Total: decPtr("100.00"), InvoiceDate: datePtr("2023-01-01")},
		{ID: uuid.New(), VendorName: "Zebra Ltd", InvoiceNumber: "999"},
	}

	for i := range docs {
		b := e.Score(tx, &docs[i])
		for name, s := range map[string]float64{
			"amount": b.Amount, "date": b.Date, "vendor": b.Vendor,
			"reference": b.Reference, "composite": b.Composite,
		} {
			assert.GreaterOrEqual(t, s, 0.0, "doc %d %s", i, name)
			assert.LessOrEqual(t, s, 1.0, "doc %d %s", i, name)
		}
	}
}

func TestCompositeBonusMonotonicity(t *testing.T) {
	e := newTestEngine(t)

	// Exact amount only: the amount criterion alone crosses the bonus
	// threshold, so the composite exceeds the plain weighted sum.
	tx := testTx("100.00")
	doc := models.Document{ID: uuid.New(), Total: decPtr("100.00")}

	b := e.Score(tx, &doc)
	weighted := b.Amount*0.40 + b.Date*0.25 + b.Vendor*0.25 + b.Reference*0.10
	assert.GreaterOrEqual(t, b.Composite, weighted)
	assert.InDelta(t, weighted*1.1, b.Composite, 0.0001)
}

func TestScoreDirectionIndependence(t *testing.T) {
	e := newTestEngine(t)
	doc := perfectDoc()

	outgoing := perfectTx()
	incoming := perfectTx()
	incoming.Amount = incoming.Amount.Neg()
	incoming.Outgoing = false

	assert.Equal(t, e.Score(outgoing, &doc), e.Score(incoming, &doc))
}

func TestRank(t *testing.T) {
	e := newTestEngine(t)
	tx := perfectTx()

	good := perfectDoc()
	medium := models.Document{
		ID:          uuid.New(),
		Total:       decPtr("238.00"),
		InvoiceDate: datePtr("2024-02-25"),
	}
	unrelated := models.Document{
		ID:         uuid.New(),
		Total:      decPtr("9000.00"),
		VendorName: "Someone Else",
	}

	matches, err := e.Rank(context.Background(), tx, []models.Document{unrelated, medium, good}, false)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, good.ID, matches[0].Document.ID)
	assert.Equal(t, medium.ID, matches[1].Document.ID)

	for i, m := range matches {
		assert.GreaterOrEqual(t, m.Score, e.cfg.MinimumMatchScore, "match %d", i)
		if i > 0 {
			assert.LessOrEqual(t, m.Score, matches[i-1].Score)
		}
	}
}

func TestRankTiesKeepPoolOrder(t *testing.T) {
	e := newTestEngine(t)
	tx := perfectTx()

	first := perfectDoc()
	second := perfectDoc()

	matches, err := e.Rank(context.Background(), tx, []models.Document{first, second}, false)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, first.ID, matches[0].Document.ID)
	assert.Equal(t, second.ID, matches[1].Document.ID)
}

func TestRankUnconnectedOnly(t *testing.T) {
	e := newTestEngine(t)
	tx := perfectTx()

	connected := perfectDoc()
	connected.Connected = true
	free := perfectDoc()

	matches, err := e.Rank(context.Background(), tx, []models.Document{connected, free}, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, free.ID, matches[0].Document.ID)
}

func TestRankExcludesDistantDateOnlyDocument(t *testing.T) {
	e := newTestEngine(t)

	// 45 days apart and nothing else matching: the residual date decay
	// alone cannot clear the minimum score.
	tx := &models.Transaction{
		ID:              uuid.New(),
		Amount:          dec("100.00"),
		TransactionDate: mustDate("2024-03-15"),
	}
	doc := models.Document{ID: uuid.New(), InvoiceDate: datePtr("2024-01-30")}

	matches, err := e.Rank(context.Background(), tx, []models.Document{doc}, false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRankCancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Rank(ctx, perfectTx(), []models.Document{perfectDoc()}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankBatchMatchesSingleRank(t *testing.T) {
	e := newTestEngine(t)

	pool := []models.Document{
		perfectDoc(),
		{ID: uuid.New(), Total: decPtr("119.00"), VendorName: "Acme GmbH"},
		{ID: uuid.New(), Total: decPtr("50.00"), InvoiceDate: datePtr("2024-03-10")},
	}

	txs := []models.Transaction{
		*perfectTx(),
		{ID: uuid.New(), Amount: dec("119.00"), TransactionDate: mustDate("2024-03-15"), Counterparty: "Acme GmbH"},
		{ID: uuid.New(), Amount: dec("-50.00"), TransactionDate: mustDate("2024-03-12")},
	}

	batch, err := e.RankBatch(context.Background(), txs, pool)
	require.NoError(t, err)
	require.Len(t, batch, len(txs))

	for i := range txs {
		single, err := e.Rank(context.Background(), &txs[i], pool, false)
		require.NoError(t, err)
		assert.Equal(t, single, batch[txs[i].ID], "transaction %d", i)
	}
}

func TestRankBatchCancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RankBatch(ctx, []models.Transaction{*perfectTx()}, []models.Document{perfectDoc()})
	assert.Error(t, err)
}
