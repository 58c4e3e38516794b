package matching

import (
	"math"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

// scoreDate rates date proximity between the transaction and the document.
// Works on absolute day difference, so the score is identical for outgoing
// and incoming transactions.
func (e *Engine) scoreDate(tx *models.Transaction, doc *models.Document) float64 {
	docDate, ok := doc.EffectiveDate()
	if !ok {
		return 0
	}

	days := int(math.Abs(tx.TransactionDate.Sub(docDate).Hours() / 24))

	medium := e.cfg.Date.MediumDays
	switch {
	case days <= e.cfg.Date.ExactDays:
		return 1.0
	case days <= e.cfg.Date.HighDays:
		return 0.8
	case days <= medium:
		return 0.5
	case days <= medium*3:
		// linear decay from 0.2 down to 0 at medium*3
		span := float64(medium * 2)
		return 0.2 * float64(medium*3-days) / span
	default:
		return 0
	}
}
