package matching

import (
	"github.com/shopspring/decimal"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

var hundred = decimal.NewFromInt(100)

// scoreAmount rates how well the document amount explains the transaction
// amount. Skonto (early-payment discount) is tested before falling back to
// tolerance bands, since a skonto payment is an exact match at a reduced price.
func (e *Engine) scoreAmount(tx *models.Transaction, doc *models.Document) float64 {
	docAmount, ok := doc.EffectiveAmount()
	if !ok {
		return 0
	}
	txAmount := tx.GrossAmount()
	if txAmount.IsZero() {
		return 0
	}
	docAmount = docAmount.Abs()

	if relativeDiff(docAmount, txAmount) <= e.cfg.Amount.Exact {
		return 1.0
	}

	if doc.SkontoPercent != nil && doc.SkontoPercent.IsPositive() {
		discounted := docAmount.Mul(hundred.Sub(*doc.SkontoPercent)).Div(hundred)
		if relativeDiff(discounted, txAmount) <= e.cfg.Amount.Exact {
			return 0.9
		}
	}

	// Common 3% skonto even when the document does not declare one.
	discounted := docAmount.Mul(decimal.NewFromFloat(0.97))
	if relativeDiff(discounted, txAmount) <= e.cfg.Amount.Exact {
		return 0.85
	}

	return e.amountBandScore(docAmount, txAmount)
}

// amountBandScore maps the relative difference of two amounts onto the
// configured tolerance bands, trailing linearly to zero past medium*3.
// Also used by the combination finder against combined totals.
func (e *Engine) amountBandScore(docAmount, txAmount decimal.Decimal) float64 {
	if docAmount.IsZero() || txAmount.IsZero() {
		return 0
	}
	r := relativeDiff(docAmount, txAmount)
	switch {
	case r <= e.cfg.Amount.Exact:
		return 1.0
	case r <= e.cfg.Amount.High:
		return 0.8
	case r <= e.cfg.Amount.Medium:
		return 0.5
	case r <= e.cfg.Amount.Medium*3:
		span := e.cfg.Amount.Medium * 2
		return 0.5 * (e.cfg.Amount.Medium*3 - r) / span
	default:
		return 0
	}
}

// relativeDiff returns |a-b| / max(a, b) for non-negative amounts.
func relativeDiff(a, b decimal.Decimal) float64 {
	max := decimal.Max(a, b)
	if max.IsZero() {
		return 0
	}
	return a.Sub(b).Abs().Div(max).InexactFloat64()
}
