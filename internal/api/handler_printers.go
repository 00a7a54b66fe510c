package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/model"
)

// GetPrinters lists every printer ordered by model name.
func (h *Handler) GetPrinters(c *gin.Context) {
	printers, err := h.store.ListPrinters(c.Request.Context())
	if err != nil {
		h.respondError(c, apperr.Storage("list printers", err))
		return
	}
	if printers == nil {
		printers = []model.Printer{}
	}
	c.JSON(http.StatusOK, printers)
}
