// internal/repository/postgres/invoice_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/invoice"
	xerrors "tahseel-service/internal/pkg/errors"
	"tahseel-service/internal/service/detection"
)

const invoiceColumns = `
	id, company_id, company_name, invoice_number,
	customer_id, customer_name, customer_email,
	amount, currency, due_date, status,
	attachment_bucket, attachment_key,
	created_at, updated_at
`

type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// FindEligible selects invoices due for escalation: status in the accepted
// set, due before the cutoff, amount within bounds, and no follow-up log
// in an in-flight state. Ordered oldest due date first, larger amount
// first on ties, so the longest-outstanding, highest-value debts escalate
// first under any processing cap.
func (r *InvoiceRepository) FindEligible(ctx context.Context, companyID int64, f detection.EligibilityFilter) ([]invoice.Invoice, error) {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM invoices i
		WHERE i.company_id = $1
		  AND i.status = ANY($2)
		  AND i.due_date < $3
		  AND NOT EXISTS (
			SELECT 1 FROM followup_logs fl
			WHERE fl.invoice_id = i.id
			  AND fl.status IN ('QUEUED', 'SENT')
		  )
	`, invoiceColumns)

	args := []interface{}{companyID, statuses, f.DueBefore}
	idx := 4
	if f.DueAfter != nil {
		query += fmt.Sprintf(" AND i.due_date >= $%d", idx)
		args = append(args, *f.DueAfter)
		idx++
	}
	if f.MinAmount != nil {
		query += fmt.Sprintf(" AND i.amount >= $%d", idx)
		args = append(args, *f.MinAmount)
		idx++
	}
	if f.MaxAmount != nil {
		query += fmt.Sprintf(" AND i.amount <= $%d", idx)
		args = append(args, *f.MaxAmount)
		idx++
	}
	query += " ORDER BY i.due_date ASC, i.amount DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// FindByID retrieves an invoice scoped to a company.
func (r *InvoiceRepository) FindByID(ctx context.Context, companyID, id int64) (*invoice.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices i WHERE i.company_id = $1 AND i.id = $2`, invoiceColumns)

	var inv invoice.Invoice
	err := r.db.QueryRow(ctx, query, companyID, id).Scan(invoiceFields(&inv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

// FindByIDs retrieves a set of invoices scoped to a company. Missing ids
// are silently absent from the result.
func (r *InvoiceRepository) FindByIDs(ctx context.Context, companyID int64, ids []int64) ([]invoice.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices i WHERE i.company_id = $1 AND i.id = ANY($2)`, invoiceColumns)

	rows, err := r.db.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// List retrieves invoices with filters and pagination.
func (r *InvoiceRepository) List(ctx context.Context, companyID int64, f *invoice.ListFilters) ([]invoice.Invoice, int64, error) {
	where := []string{"i.company_id = $1"}
	args := []interface{}{companyID}
	idx := 2

	if f.Status != nil {
		where = append(where, fmt.Sprintf("i.status = $%d", idx))
		args = append(args, string(*f.Status))
		idx++
	}
	if f.MinAmount != nil {
		where = append(where, fmt.Sprintf("i.amount >= $%d", idx))
		args = append(args, *f.MinAmount)
		idx++
	}
	if f.MaxAmount != nil {
		where = append(where, fmt.Sprintf("i.amount <= $%d", idx))
		args = append(args, *f.MaxAmount)
		idx++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(i.invoice_number ILIKE $%d OR i.customer_name ILIKE $%d)", idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM invoices i WHERE %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	query := fmt.Sprintf(`
		SELECT %s FROM invoices i
		WHERE %s
		ORDER BY i.due_date ASC, i.amount DESC
		LIMIT $%d OFFSET $%d
	`, invoiceColumns, whereClause, idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func invoiceFields(inv *invoice.Invoice) []interface{} {
	return []interface{}{
		&inv.ID, &inv.CompanyID, &inv.CompanyName, &inv.InvoiceNumber,
		&inv.CustomerID, &inv.CustomerName, &inv.CustomerEmail,
		&inv.Amount, &inv.Currency, &inv.DueDate, &inv.Status,
		&inv.AttachmentBucket, &inv.AttachmentKey,
		&inv.CreatedAt, &inv.UpdatedAt,
	}
}

func scanInvoices(rows pgx.Rows) ([]invoice.Invoice, error) {
	var invoices []invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.Scan(invoiceFields(&inv)...); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return invoices, nil
}

// PaymentRepository reads recorded payments; the compliance gate uses them
// as a hold signal.
type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) FindRecentPayments(ctx context.Context, invoiceID int64, since time.Time) ([]invoice.Payment, error) {
	query := `
		SELECT id, invoice_id, amount, method, paid_at
		FROM payments
		WHERE invoice_id = $1 AND paid_at >= $2
		ORDER BY paid_at DESC
	`

	rows, err := r.db.Query(ctx, query, invoiceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []invoice.Payment
	for rows.Next() {
		var p invoice.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return payments, nil
}
