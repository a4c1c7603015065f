// internal/repository/postgres/customer_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/customer"
	xerrors "tahseel-service/internal/pkg/errors"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// FindByID retrieves a customer scoped to a company.
func (r *CustomerRepository) FindByID(ctx context.Context, companyID, id int64) (*customer.Customer, error) {
	query := `
		SELECT id, company_id, name, email, trn, business_type, risk_level,
		       preferred_language, created_at, updated_at
		FROM customers
		WHERE company_id = $1 AND id = $2
	`

	var c customer.Customer
	err := r.db.QueryRow(ctx, query, companyID, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.TRN, &c.BusinessType,
		&c.RiskLevel, &c.PreferredLanguage, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &c, nil
}
