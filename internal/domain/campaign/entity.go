// internal/domain/campaign/entity.go
package campaign

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusDraft               Status = "draft"
	StatusSending             Status = "sending"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
	StatusPaused              Status = "paused"
)

// Terminal reports whether the campaign can never be dispatched again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCompletedWithErrors || s == StatusFailed
}

type SendStatus string

const (
	SendPending SendStatus = "pending"
	SendSent    SendStatus = "sent"
	SendFailed  SendStatus = "failed"
)

// Campaign is a bulk email run over a set of invoices. Status is derived
// from the EmailSend aggregate, never set ahead of it. Invariants:
// TotalRecipients == count of EmailSend rows, and
// SentCount + FailedCount <= TotalRecipients at all times.
type Campaign struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Reference string `json:"reference" db:"reference"`
	Name      string `json:"name" db:"name"`

	// Template text before merge-field resolution.
	Subject string `json:"subject" db:"subject"`
	Body    string `json:"body" db:"body"`

	Status       Status `json:"status" db:"status"`
	BatchSize    int    `json:"batch_size" db:"batch_size"`
	BatchDelayMS int    `json:"batch_delay_ms" db:"batch_delay_ms"`
	AttachPDF    bool   `json:"attach_pdf" db:"attach_pdf"`

	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	SentCount       int `json:"sent_count" db:"sent_count"`
	FailedCount     int `json:"failed_count" db:"failed_count"`

	ErrorMessage sql.NullString `json:"error_message,omitempty" db:"error_message"`
	StartedAt    sql.NullTime   `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  sql.NullTime   `json:"completed_at,omitempty" db:"completed_at"`
	DurationMS   sql.NullInt64  `json:"duration_ms,omitempty" db:"duration_ms"`

	CreatedBy int64     `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EmailSend is one recipient of a campaign. Each row is owned by exactly
// one in-flight send attempt.
type EmailSend struct {
	ID         int64  `json:"id" db:"id"`
	CampaignID int64  `json:"campaign_id" db:"campaign_id"`
	InvoiceID  int64  `json:"invoice_id" db:"invoice_id"`
	Recipient  string `json:"recipient" db:"recipient"`

	// Resolved at campaign creation, no placeholders left.
	Subject string `json:"subject" db:"subject"`
	Body    string `json:"body" db:"body"`

	Status            SendStatus     `json:"status" db:"status"`
	ProviderMessageID sql.NullString `json:"provider_message_id,omitempty" db:"provider_message_id"`
	ErrorMessage      sql.NullString `json:"error_message,omitempty" db:"error_message"`
	SentAt            sql.NullTime   `json:"sent_at,omitempty" db:"sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
