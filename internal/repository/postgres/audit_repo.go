// internal/repository/postgres/audit_repository.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/followup"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) CreateEntry(ctx context.Context, e *followup.AuditEntry) error {
	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_trail (company_id, invoice_id, actor_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		e.CompanyID, e.InvoiceID, e.ActorID, e.Action, details,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// ListEntries returns audit trail entries for a company, newest first,
// optionally filtered by action.
func (r *AuditRepository) ListEntries(ctx context.Context, companyID int64, action *followup.AuditAction, limit int) ([]followup.AuditEntry, error) {
	query := `
		SELECT id, company_id, invoice_id, actor_id, action, details, created_at
		FROM audit_trail
		WHERE company_id = $1
		  AND ($2::text IS NULL OR action = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, companyID, action, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []followup.AuditEntry{}
	for rows.Next() {
		var e followup.AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.InvoiceID, &e.ActorID, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return entries, nil
}

// HasOverrideFlag reports whether a manual override was recorded against the
// invoice since the given time.
func (r *AuditRepository) HasOverrideFlag(ctx context.Context, companyID, invoiceID int64, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM audit_trail
			WHERE company_id = $1
			  AND invoice_id = $2
			  AND action = $3
			  AND created_at >= $4
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, companyID, invoiceID, followup.AuditFollowUpOverride, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check override flag: %w", err)
	}
	return exists, nil
}
