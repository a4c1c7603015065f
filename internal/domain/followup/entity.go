// internal/domain/followup/entity.go
package followup

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// InFlight reports whether a log still blocks new follow-ups for its
// invoice. At most one log per invoice may be in an in-flight state.
func (s Status) InFlight() bool {
	return s == StatusQueued || s == StatusSent
}

// Log is one queued or sent follow-up for an invoice. Subject and content
// are resolved at queue time so the dispatcher never re-renders.
type Log struct {
	ID          int64  `json:"id" db:"id"`
	CompanyID   int64  `json:"company_id" db:"company_id"`
	InvoiceID   int64  `json:"invoice_id" db:"invoice_id"`
	SequenceID  int64  `json:"sequence_id" db:"sequence_id"`
	StepNumber  int    `json:"step_number" db:"step_number"`
	Subject     string `json:"subject" db:"subject"`
	Content     string `json:"content" db:"content"`
	Recipient   string `json:"recipient" db:"recipient"`

	ScheduledAt  time.Time      `json:"scheduled_at" db:"scheduled_at"`
	SentAt       sql.NullTime   `json:"sent_at,omitempty" db:"sent_at"`
	Status       Status         `json:"status" db:"status"`
	ErrorMessage sql.NullString `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AuditAction is the closed set of audit trail actions this core writes or
// reads.
type AuditAction string

const (
	AuditFollowUpTriggered AuditAction = "followup_triggered"
	AuditFollowUpOverride  AuditAction = "followup_override"
	AuditDetectionRun      AuditAction = "detection_run"
)

// AuditEntry records a collections action against an invoice. A manual
// followup_override entry within the lookback window suppresses triggers.
type AuditEntry struct {
	ID        int64                  `json:"id" db:"id"`
	CompanyID int64                  `json:"company_id" db:"company_id"`
	InvoiceID sql.NullInt64          `json:"invoice_id,omitempty" db:"invoice_id"`
	ActorID   int64                  `json:"actor_id" db:"actor_id"`
	Action    AuditAction            `json:"action" db:"action"`
	Details   map[string]interface{} `json:"details,omitempty" db:"details"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
