package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a bank transaction imported from account statements.
// It is treated as read-only by the matching engine.
type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);index"` // signed gross amount
	TransactionDate time.Time       `gorm:"column:transaction_date"`
	Counterparty    string
	SenderReceiver  string
	Note            string // free text, may embed invoice references
	Outgoing        bool
	CreatedAt       time.Time
}

// GrossAmount returns the unsigned amount used for matching. Outgoing
// transactions carry negative amounts; scoring is direction-independent.
func (t *Transaction) GrossAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// VendorFields returns the vendor-identifying strings of the transaction,
// empty entries removed.
func (t *Transaction) VendorFields() []string {
	var fields []string
	if t.Counterparty != "" {
		fields = append(fields, t.Counterparty)
	}
	if t.SenderReceiver != "" {
		fields = append(fields, t.SenderReceiver)
	}
	return fields
}
