// internal/service/invoice/service.go
package invoice

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tahseel-service/internal/domain/invoice"
	"tahseel-service/internal/pkg/tenant"
)

// Repository is the datastore slice the invoice service needs.
type Repository interface {
	FindByID(ctx context.Context, companyID, id int64) (*invoice.Invoice, error)
	List(ctx context.Context, companyID int64, f *invoice.ListFilters) ([]invoice.Invoice, int64, error)
}

type InvoiceService struct {
	repo   Repository
	logger *zap.Logger
}

func NewInvoiceService(repo Repository, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{repo: repo, logger: logger}
}

func (s *InvoiceService) GetInvoice(ctx context.Context, tn tenant.Context, id int64) (*invoice.Invoice, error) {
	return s.repo.FindByID(ctx, tn.CompanyID, id)
}

func (s *InvoiceService) ListInvoices(ctx context.Context, tn tenant.Context, filters *invoice.ListFilters) (*invoice.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	invoices, total, err := s.repo.List(ctx, tn.CompanyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &invoice.ListResponse{
		Invoices:   invoices,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}
