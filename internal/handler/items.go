package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerly/backend/internal/model"
	"github.com/grocerly/backend/internal/service"
)

type ItemsHandler struct {
	svc *service.ItemService
}

func NewItemsHandler(svc *service.ItemService) *ItemsHandler {
	return &ItemsHandler{svc: svc}
}

// List returns every non-deleted item, cache-first.
func (h *ItemsHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "request failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}
