// internal/handlers/campaign/campaign_handler.go
package campaign

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tahseel-service/internal/domain/campaign"
	xerrors "tahseel-service/internal/pkg/errors"
	"tahseel-service/internal/pkg/response"
	"tahseel-service/internal/pkg/tenant"
	service "tahseel-service/internal/service/campaign"
)

type CampaignHandler struct {
	campaignService *service.CampaignService
	logger          *zap.Logger
}

func NewCampaignHandler(campaignService *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		logger:          logger,
	}
}

// CreateCampaign creates a new dunning campaign in draft state
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req campaign.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.campaignService.CreateCampaign(c.Request.Context(), tn, &req)
	if err != nil {
		if xerrors.IsValidation(err) {
			response.ValidationError(c, "invalid campaign", err)
			return
		}
		h.logger.Error("failed to create campaign", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to create campaign", err)
		return
	}

	response.Success(c, http.StatusCreated, "campaign created successfully", result)
}

// SendCampaign dispatches a draft campaign
func (h *CampaignHandler) SendCampaign(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	campaignID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid campaign ID", err)
		return
	}

	result, err := h.campaignService.SendCampaign(c.Request.Context(), tn, campaignID)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "campaign not found")
		case xerrors.IsState(err):
			response.Conflict(c, "campaign cannot be sent", err)
		case xerrors.IsValidation(err):
			response.ValidationError(c, "campaign has no pending recipients", err)
		default:
			h.logger.Error("campaign send failed", zap.Int64("campaign_id", campaignID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "campaign send failed", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "campaign dispatched", result)
}

// GetCampaign retrieves a single campaign
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	campaignID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid campaign ID", err)
		return
	}

	result, err := h.campaignService.GetCampaign(c.Request.Context(), tn, campaignID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "campaign not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to get campaign", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign retrieved", result)
}

// ListCampaigns retrieves campaigns with pagination
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var filters campaign.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.campaignService.ListCampaigns(c.Request.Context(), tn, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list campaigns", err)
		return
	}

	response.Success(c, http.StatusOK, "campaigns retrieved", result)
}

// GetProgress returns the live progress projection for a campaign
func (h *CampaignHandler) GetProgress(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	campaignID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid campaign ID", err)
		return
	}

	result, err := h.campaignService.Progress(c.Request.Context(), tn, campaignID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "campaign not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to get progress", err)
		return
	}

	response.Success(c, http.StatusOK, "progress retrieved", result)
}

// PauseCampaign stops further batches from starting
func (h *CampaignHandler) PauseCampaign(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	campaignID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid campaign ID", err)
		return
	}

	if err := h.campaignService.PauseCampaign(c.Request.Context(), tn, campaignID); err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "campaign not found")
		case xerrors.IsState(err):
			response.Conflict(c, "campaign is not sending", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to pause campaign", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "campaign paused", nil)
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
