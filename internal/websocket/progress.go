// internal/websocket/progress.go
package websocket

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tahseel-service/internal/domain/campaign"
	"tahseel-service/internal/pkg/tenant"
	campaignService "tahseel-service/internal/service/campaign"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressHandler streams batch-coalesced campaign progress events over a
// websocket. The stream ends after the terminal event.
type ProgressHandler struct {
	campaigns *campaignService.CampaignService
	logger    *zap.Logger
}

func NewProgressHandler(campaigns *campaignService.CampaignService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		campaigns: campaigns,
		logger:    logger,
	}
}

// HandleConnection upgrades the request and relays progress events for the
// campaign in the path. Must run behind the auth middleware.
func (h *ProgressHandler) HandleConnection(c *gin.Context) {
	tn, err := tenant.FromGin(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	campaignID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	// Ownership check before upgrading.
	if _, err := h.campaigns.GetCampaign(c.Request.Context(), tn, campaignID); err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.campaigns.Subscribe(campaignID)
	defer cancel()

	go h.readLoop(conn)
	h.writeLoop(conn, campaignID, events)
}

// readLoop drains client frames so pong handlers fire; clients never send
// application data on this stream.
func (h *ProgressHandler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ProgressHandler) writeLoop(conn *websocket.Conn, campaignID int64, events <-chan campaign.ProgressEvent) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("progress write failed",
					zap.Int64("campaign_id", campaignID), zap.Error(err))
				return
			}
			if ev.Terminal {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "campaign finished"))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
