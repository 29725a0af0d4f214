package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ProfileIDKey is the gin context key the auth middleware stores the caller's profile id under
const ProfileIDKey = "profileID"

// Handler for WebSocket connections
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// HandleFeed godoc
// @Summary Subscribe to the live publish feed
// @Description Upgrades to a WebSocket that receives one JSON message per published announcement, devotional or event. The token may be passed as ?token=.
// @Tags feed
// @Security BearerAuth
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.ErrorResponse
// @Router /ws/feed [get]
func (h *Handler) HandleFeed(c *gin.Context) {
	profileID := c.GetInt64(ProfileIDKey)
	if profileID == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("profileID", profileID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, 32),
		profileID: profileID,
		logger:    h.logger,
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Int64("profileID", profileID).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("Feed connection established")
}
