// internal/repository/postgres/sequence_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/sequence"
	xerrors "tahseel-service/internal/pkg/errors"
)

type SequenceRepository struct {
	db *pgxpool.Pool
}

func NewSequenceRepository(db *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// FindActive retrieves the active follow-up sequences for a company.
func (r *SequenceRepository) FindActive(ctx context.Context, companyID int64) ([]sequence.FollowUpSequence, error) {
	query := `
		SELECT id, company_id, name, active, steps, created_at, updated_at
		FROM followup_sequences
		WHERE company_id = $1 AND active = true
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences: %w", err)
	}
	defer rows.Close()

	var sequences []sequence.FollowUpSequence
	for rows.Next() {
		var s sequence.FollowUpSequence
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.Name, &s.Active, &s.StepsJSON, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}
		sequences = append(sequences, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sequences: %w", err)
	}
	return sequences, nil
}

// FindByID retrieves a sequence scoped to a company.
func (r *SequenceRepository) FindByID(ctx context.Context, companyID, id int64) (*sequence.FollowUpSequence, error) {
	query := `
		SELECT id, company_id, name, active, steps, created_at, updated_at
		FROM followup_sequences
		WHERE company_id = $1 AND id = $2
	`

	var s sequence.FollowUpSequence
	err := r.db.QueryRow(ctx, query, companyID, id).Scan(
		&s.ID, &s.CompanyID, &s.Name, &s.Active, &s.StepsJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sequence: %w", err)
	}
	return &s, nil
}
