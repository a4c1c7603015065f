// internal/handlers/workhours/workhours_handler.go
package workhours

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tahseel-service/internal/pkg/response"
	"tahseel-service/internal/pkg/tenant"
	service "tahseel-service/internal/service/workhours"
)

type WorkHoursHandler struct {
	configService *service.ConfigService
	resolver      *service.Resolver
}

func NewWorkHoursHandler(configService *service.ConfigService, resolver *service.Resolver) *WorkHoursHandler {
	return &WorkHoursHandler{
		configService: configService,
		resolver:      resolver,
	}
}

// GetConfig returns the company's business-hours configuration
func (h *WorkHoursHandler) GetConfig(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	cfg, err := h.configService.ForCompany(c.Request.Context(), tn.CompanyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load work hours config", err)
		return
	}

	response.Success(c, http.StatusOK, "work hours config retrieved", cfg)
}

// CheckTime evaluates whether a given instant is sendable for the company.
// Accepts ?at=RFC3339; defaults to now.
func (h *WorkHoursHandler) CheckTime(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	at := time.Now()
	if v := c.Query("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid timestamp, expected RFC3339", err)
			return
		}
		at = parsed
	}

	opts := service.CheckOptions{
		AllowWeekends:    c.Query("allow_weekends") == "true",
		AllowHolidays:    c.Query("allow_holidays") == "true",
		IgnorePrayerTime: c.Query("ignore_prayer_time") == "true",
	}

	cfg, err := h.configService.ForCompany(c.Request.Context(), tn.CompanyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load work hours config", err)
		return
	}

	check := h.resolver.Check(cfg, opts, at)
	response.Success(c, http.StatusOK, "time checked", check)
}
