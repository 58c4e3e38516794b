package matching

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

// combinedAmount sums the effective amounts of the given documents.
// Documents without a usable amount contribute zero.
func combinedAmount(docs []models.Document) decimal.Decimal {
	total := decimal.Zero
	for i := range docs {
		if amount, ok := docs[i].EffectiveAmount(); ok {
			total = total.Add(amount.Abs())
		}
	}
	return total
}

// overageWarnings checks a candidate document set against the transaction
// amount. A sum exceeding the transaction by more than the configured
// overage produces a warning; warnings annotate, they never reject.
func (e *Engine) overageWarnings(txAmount, total decimal.Decimal, docs []models.Document) []string {
	var warnings []string

	for i := range docs {
		if _, ok := docs[i].EffectiveAmount(); !ok {
			warnings = append(warnings, fmt.Sprintf("document %s has no usable amount", docs[i].ID))
		}
	}

	if txAmount.IsZero() || total.LessThanOrEqual(txAmount) {
		return warnings
	}
	overage := total.Sub(txAmount).Div(txAmount).InexactFloat64()
	if overage > e.cfg.OverageWarnThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"combined amount %s exceeds transaction amount %s by %.1f%%",
			total.StringFixed(2), txAmount.StringFixed(2), overage*100))
	}
	return warnings
}
