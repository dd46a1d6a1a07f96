package postgres

import (
	"context"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/domain/invoice"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/postgres"
	"github.com/shopspring/decimal"
)

type invoiceRow struct {
	ID            string          `db:"id"`
	ContractID    string          `db:"contract_id"`
	InvoiceDate   time.Time       `db:"invoice_date"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	InvoiceNumber string          `db:"invoice_number"`
}

func (r invoiceRow) toDomain() *invoice.Invoice {
	return &invoice.Invoice{
		ID:            r.ID,
		ContractID:    r.ContractID,
		InvoiceDate:   r.InvoiceDate,
		TotalAmount:   r.TotalAmount,
		InvoiceNumber: r.InvoiceNumber,
	}
}

// InvoiceRepository implements invoice.Repository as a read-only postgres
// view (spec.md SS6: "the core does not write invoices").
type InvoiceRepository struct {
	db *postgres.DB
}

// NewInvoiceRepository builds an InvoiceRepository.
func NewInvoiceRepository(db *postgres.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

var _ invoice.Repository = (*InvoiceRepository)(nil)

// ListByContract returns every invoice for contractID, oldest first.
func (r *InvoiceRepository) ListByContract(ctx context.Context, contractID string) ([]*invoice.Invoice, error) {
	var rows []invoiceRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, `
		SELECT id, contract_id, invoice_date, total_amount, invoice_number
		FROM invoices WHERE contract_id = $1
		ORDER BY invoice_date ASC`, contractID)
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to list invoices").Mark(ierr.ErrSystem)
	}

	out := make([]*invoice.Invoice, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
