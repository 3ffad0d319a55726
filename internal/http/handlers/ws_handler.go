// README: Websocket endpoint for realtime ride and driver events.
package handlers

import (
	"github.com/gin-gonic/gin"

	"moto/internal/modules/realtime"
)

type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) Serve(c *gin.Context) {
	// Upgrade failures are already answered by the upgrader.
	if err := h.hub.Serve(c.Writer, c.Request, principal(c)); err != nil {
		_ = c.Error(err)
	}
}
