// internal/handlers/followup/followup_handler.go
package followup

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "tahseel-service/internal/domain/followup"
	"tahseel-service/internal/pkg/response"
	"tahseel-service/internal/pkg/tenant"
	"tahseel-service/internal/service/detection"
	followupService "tahseel-service/internal/service/followup"
)

// AuditReader lists audit trail entries for the listing endpoint.
type AuditReader interface {
	ListEntries(ctx context.Context, companyID int64, action *domain.AuditAction, limit int) ([]domain.AuditEntry, error)
}

type FollowUpHandler struct {
	scanner    *detection.Scanner
	dispatcher *followupService.Service
	audit      AuditReader
	logger     *zap.Logger
}

func NewFollowUpHandler(scanner *detection.Scanner, dispatcher *followupService.Service, audit AuditReader, logger *zap.Logger) *FollowUpHandler {
	return &FollowUpHandler{
		scanner:    scanner,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger,
	}
}

// Detect scans for eligible invoices and queues follow-ups
func (h *FollowUpHandler) Detect(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var cond domain.DetectionConditions
	if err := c.ShouldBindJSON(&cond); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid detection conditions", err)
		return
	}

	result, err := h.scanner.DetectAndTrigger(c.Request.Context(), tn, cond)
	if err != nil {
		h.logger.Error("detection run failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "detection failed", err)
		return
	}

	response.Success(c, http.StatusOK, "detection completed", result)
}

// DispatchDue sends queued follow-ups whose scheduled time has passed
func (h *FollowUpHandler) DispatchDue(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	result, err := h.dispatcher.DispatchDue(c.Request.Context(), tn, limit)
	if err != nil {
		h.logger.Error("follow-up dispatch failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "dispatch failed", err)
		return
	}

	response.Success(c, http.StatusOK, "dispatch completed", result)
}

// List retrieves follow-up logs, optionally filtered by status
func (h *FollowUpHandler) List(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var status *domain.Status
	if v := c.Query("status"); v != "" {
		s := domain.Status(v)
		if s != domain.StatusQueued && s != domain.StatusSent && s != domain.StatusFailed {
			response.Error(c, http.StatusBadRequest, "invalid status filter", nil)
			return
		}
		status = &s
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	logs, err := h.dispatcher.List(c.Request.Context(), tn, status, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list follow-ups", err)
		return
	}

	response.Success(c, http.StatusOK, "follow-ups retrieved", gin.H{"followups": logs, "count": len(logs)})
}

// ListAudit retrieves the collections audit trail, optionally filtered by
// action (e.g. detection_run)
func (h *FollowUpHandler) ListAudit(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var action *domain.AuditAction
	if v := c.Query("action"); v != "" {
		a := domain.AuditAction(v)
		if a != domain.AuditFollowUpTriggered && a != domain.AuditFollowUpOverride && a != domain.AuditDetectionRun {
			response.Error(c, http.StatusBadRequest, "invalid action filter", nil)
			return
		}
		action = &a
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.audit.ListEntries(c.Request.Context(), tn.CompanyID, action, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list audit entries", err)
		return
	}

	response.Success(c, http.StatusOK, "audit entries retrieved", gin.H{"entries": entries, "count": len(entries)})
}
