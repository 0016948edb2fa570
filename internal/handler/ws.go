package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/grocerly/backend/internal/service"
	"github.com/grocerly/backend/internal/ws"
)

type WSHandler struct {
	hub   *ws.Hub
	items *service.ItemService
}

func NewWSHandler(hub *ws.Hub, items *service.ItemService) *WSHandler {
	return &WSHandler{hub: hub, items: items}
}

// Serve upgrades the request and hands the connection to the hub.
func (h *WSHandler) Serve(c *gin.Context) {
	h.hub.HandleUpgrade(c.Writer, c.Request, h.items)
}
