// internal/app/router.go
package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authHandler "tahseel-service/internal/handlers/auth"
	campaignHandler "tahseel-service/internal/handlers/campaign"
	followupHandler "tahseel-service/internal/handlers/followup"
	invoiceHandler "tahseel-service/internal/handlers/invoice"
	workhoursHandler "tahseel-service/internal/handlers/workhours"
	"tahseel-service/internal/middleware"
	"tahseel-service/internal/websocket"
)

type Handlers struct {
	AuthHandler      *authHandler.AuthHandler
	FollowUpHandler  *followupHandler.FollowUpHandler
	CampaignHandler  *campaignHandler.CampaignHandler
	InvoiceHandler   *invoiceHandler.InvoiceHandler
	WorkHoursHandler *workhoursHandler.WorkHoursHandler
	ProgressHandler  *websocket.ProgressHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
	}

	// ==================== Invoices ====================
	invoices := api.Group("/invoices")
	invoices.Use(h.AuthMiddleware.Auth())
	{
		invoices.GET("", h.InvoiceHandler.ListInvoices)
		invoices.GET("/:id", h.InvoiceHandler.GetInvoice)
	}

	// ==================== Follow-ups ====================
	followups := api.Group("/followups")
	followups.Use(h.AuthMiddleware.Auth())
	{
		followups.GET("", h.FollowUpHandler.List)
		followups.GET("/audit", h.FollowUpHandler.ListAudit)
		followups.POST("/detect", h.AuthMiddleware.RequireRole("admin", "collections_manager"), h.FollowUpHandler.Detect)
		followups.POST("/dispatch", h.AuthMiddleware.RequireRole("admin", "collections_manager"), h.FollowUpHandler.DispatchDue)
	}

	// ==================== Campaigns ====================
	campaigns := api.Group("/campaigns")
	campaigns.Use(h.AuthMiddleware.Auth())
	{
		campaigns.GET("", h.CampaignHandler.ListCampaigns)
		campaigns.GET("/:id", h.CampaignHandler.GetCampaign)
		campaigns.GET("/:id/progress", h.CampaignHandler.GetProgress)
		campaigns.POST("", h.CampaignHandler.CreateCampaign)
		campaigns.POST("/:id/send", h.CampaignHandler.SendCampaign)
		campaigns.PUT("/:id/pause", h.CampaignHandler.PauseCampaign)
	}

	// ==================== Work Hours ====================
	workhours := api.Group("/work-hours")
	workhours.Use(h.AuthMiddleware.Auth())
	{
		workhours.GET("/config", h.WorkHoursHandler.GetConfig)
		workhours.GET("/check", h.WorkHoursHandler.CheckTime)
	}

	// ==================== WebSocket ====================
	ws := r.Group("/ws")
	ws.Use(h.AuthMiddleware.Auth())
	{
		ws.GET("/campaigns/:id/progress", h.ProgressHandler.HandleConnection)
	}

	logger.Info("router configured")
}
