// internal/handlers/invoice/invoice_handler.go
package invoice

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tahseel-service/internal/domain/invoice"
	xerrors "tahseel-service/internal/pkg/errors"
	"tahseel-service/internal/pkg/response"
	"tahseel-service/internal/pkg/tenant"
	service "tahseel-service/internal/service/invoice"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
}

func NewInvoiceHandler(invoiceService *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// ListInvoices retrieves invoices with filters and pagination
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var filters invoice.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), tn, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list invoices", err)
		return
	}

	response.Success(c, http.StatusOK, "invoices retrieved", result)
}

// GetInvoice retrieves a single invoice
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid invoice ID", err)
		return
	}

	result, err := h.invoiceService.GetInvoice(c.Request.Context(), tn, invoiceID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "invoice not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to get invoice", err)
		return
	}

	response.Success(c, http.StatusOK, "invoice retrieved", result)
}
