// internal/domain/invoice/entity.go
package invoice

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusSent       Status = "sent"
	StatusOverdue    Status = "overdue"
	StatusPaid       Status = "paid"
	StatusDisputed   Status = "disputed"
	StatusWrittenOff Status = "written_off"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusOverdue, StatusPaid, StatusDisputed, StatusWrittenOff:
		return true
	}
	return false
}

// Terminal reports whether the invoice can no longer accrue follow-ups.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusWrittenOff
}

// Invoice is a receivable owned by a company. Customer name/email and the
// company name are denormalized for template merging. Immutable once paid
// except for audit fields.
type Invoice struct {
	ID            int64  `json:"id" db:"id"`
	CompanyID     int64  `json:"company_id" db:"company_id"`
	CompanyName   string `json:"company_name" db:"company_name"`
	InvoiceNumber string `json:"invoice_number" db:"invoice_number"`

	CustomerID    int64  `json:"customer_id" db:"customer_id"`
	CustomerName  string `json:"customer_name" db:"customer_name"`
	CustomerEmail string `json:"customer_email" db:"customer_email"`

	Amount   float64 `json:"amount" db:"amount"`
	Currency string  `json:"currency" db:"currency"`

	DueDate time.Time `json:"due_date" db:"due_date"`
	Status  Status    `json:"status" db:"status"`

	// Coordinates of the rendered PDF in the object store, if any.
	AttachmentBucket sql.NullString `json:"attachment_bucket,omitempty" db:"attachment_bucket"`
	AttachmentKey    sql.NullString `json:"attachment_key,omitempty" db:"attachment_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DaysOverdue counts whole days past the due date at the given instant.
// Negative if the invoice is not yet due.
func (i *Invoice) DaysOverdue(now time.Time) int {
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// HasAttachment reports whether the invoice has object-store coordinates.
func (i *Invoice) HasAttachment() bool {
	return i.AttachmentBucket.Valid && i.AttachmentKey.Valid
}

// Payment is a recorded payment against an invoice. Read-only here; the
// compliance gate uses recent payments as a hold signal.
type Payment struct {
	ID        int64     `json:"id" db:"id"`
	InvoiceID int64     `json:"invoice_id" db:"invoice_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Method    string    `json:"method" db:"method"`
	PaidAt    time.Time `json:"paid_at" db:"paid_at"`
}
