package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is an invoice or receipt that can be attached to a transaction.
// Most fields are optional because they come from imperfect extraction.
type Document struct {
	ID                    uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Name                  string           `gorm:"index"`
	Total                 *decimal.Decimal `gorm:"type:numeric(14,2)"`
	SubTotal              *decimal.Decimal `gorm:"type:numeric(14,2)"`
	TaxAmount             *decimal.Decimal `gorm:"type:numeric(14,2)"`
	TaxRate               *decimal.Decimal `gorm:"type:numeric(5,2)"`
	SkontoPercent         *decimal.Decimal `gorm:"type:numeric(5,2)"` // early-payment discount
	InvoiceDate           *time.Time
	InvoiceDateFromFolder *time.Time
	VendorName            string `gorm:"index"`
	InvoiceNumber         string `gorm:"index"`
	Connected             bool   `gorm:"index"` // attached to at least one transaction
	CreatedAt             time.Time
}

// EffectiveAmount resolves the document amount used for matching.
// Priority: Total, SubTotal+TaxAmount, SubTotal, TaxAmount; the first
// non-zero value wins. Returns false when no usable amount exists.
func (d *Document) EffectiveAmount() (decimal.Decimal, bool) {
	if d.Total != nil && !d.Total.IsZero() {
		return *d.Total, true
	}
	if d.SubTotal != nil && d.TaxAmount != nil {
		sum := d.SubTotal.Add(*d.TaxAmount)
		if !sum.IsZero() {
			return sum, true
		}
	}
	if d.SubTotal != nil && !d.SubTotal.IsZero() {
		return *d.SubTotal, true
	}
	if d.TaxAmount != nil && !d.TaxAmount.IsZero() {
		return *d.TaxAmount, true
	}
	return decimal.Zero, false
}

// EffectiveDate resolves the document date used for matching.
// Priority: InvoiceDate, then the date derived from the folder name.
func (d *Document) EffectiveDate() (time.Time, bool) {
	if d.InvoiceDate != nil {
		return *d.InvoiceDate, true
	}
	if d.InvoiceDateFromFolder != nil {
		return *d.InvoiceDateFromFolder, true
	}
	return time.Time{}, false
}
