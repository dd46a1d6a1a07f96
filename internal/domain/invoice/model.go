// Package invoice models the external billing system's invoices as
// consumed read-only by the core (spec.md SS3, SS6: "the core does not
// write invoices").
package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a read-only projection of an external invoicing-system
// record.
type Invoice struct {
	ID            string
	ContractID    string
	InvoiceDate   time.Time
	TotalAmount   decimal.Decimal
	InvoiceNumber string
}

// IsCreditNote reports whether the invoice is a credit note: a negative
// total amount, conventionally with a prefixed invoice number (spec.md
// SS3).
func (i *Invoice) IsCreditNote() bool {
	if i.TotalAmount.IsNegative() {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(i.InvoiceNumber), "CN")
}
