// internal/repository/postgres/followup_log_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/followup"
)

type FollowUpLogRepository struct {
	db *pgxpool.Pool
}

func NewFollowUpLogRepository(db *pgxpool.Pool) *FollowUpLogRepository {
	return &FollowUpLogRepository{db: db}
}

// CreateLog enqueues a follow-up. The partial unique index on
// (invoice_id) WHERE status IN ('QUEUED','SENT') enforces the at-most-one
// in-flight invariant at the datastore level.
func (r *FollowUpLogRepository) CreateLog(ctx context.Context, l *followup.Log) error {
	query := `
		INSERT INTO followup_logs (
			company_id, invoice_id, sequence_id, step_number,
			subject, content, recipient, scheduled_at, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		l.CompanyID, l.InvoiceID, l.SequenceID, l.StepNumber,
		l.Subject, l.Content, l.Recipient, l.ScheduledAt, l.Status,
	).Scan(&l.ID, &l.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create follow-up log: %w", err)
	}
	return nil
}

// HasInFlight reports whether the invoice already has a QUEUED or SENT
// follow-up.
func (r *FollowUpLogRepository) HasInFlight(ctx context.Context, invoiceID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM followup_logs
			WHERE invoice_id = $1 AND status IN ('QUEUED', 'SENT')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, invoiceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check in-flight follow-ups: %w", err)
	}
	return exists, nil
}

// FindDue retrieves QUEUED logs whose scheduled time has passed.
func (r *FollowUpLogRepository) FindDue(ctx context.Context, companyID int64, asOf time.Time, limit int) ([]followup.Log, error) {
	query := `
		SELECT id, company_id, invoice_id, sequence_id, step_number,
		       subject, content, recipient, scheduled_at, sent_at,
		       status, error_message, created_at
		FROM followup_logs
		WHERE company_id = $1 AND status = 'QUEUED' AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, companyID, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due follow-ups: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// UpdateStatus transitions a log to SENT or FAILED.
func (r *FollowUpLogRepository) UpdateStatus(ctx context.Context, id int64, status followup.Status, errMsg string, at time.Time) error {
	query := `
		UPDATE followup_logs
		SET status = $2,
		    sent_at = CASE WHEN $2 = 'SENT' THEN $3 ELSE sent_at END,
		    error_message = NULLIF($4, '')
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id, status, at, errMsg); err != nil {
		return fmt.Errorf("failed to update follow-up status: %w", err)
	}
	return nil
}

// List retrieves follow-up logs for a company, optionally by status.
func (r *FollowUpLogRepository) List(ctx context.Context, companyID int64, status *followup.Status, limit int) ([]followup.Log, error) {
	query := `
		SELECT id, company_id, invoice_id, sequence_id, step_number,
		       subject, content, recipient, scheduled_at, sent_at,
		       status, error_message, created_at
		FROM followup_logs
		WHERE company_id = $1
	`
	args := []interface{}{companyID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += fmt.Sprintf(" ORDER BY scheduled_at DESC LIMIT %d", limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

func scanLogs(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]followup.Log, error) {
	var logs []followup.Log
	for rows.Next() {
		var l followup.Log
		if err := rows.Scan(
			&l.ID, &l.CompanyID, &l.InvoiceID, &l.SequenceID, &l.StepNumber,
			&l.Subject, &l.Content, &l.Recipient, &l.ScheduledAt, &l.SentAt,
			&l.Status, &l.ErrorMessage, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read follow-up logs: %w", err)
	}
	return logs, nil
}
