package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/store"
)

type postPartRequest struct {
	OemCode     string  `json:"oem_code" binding:"required"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	Ranking     int     `json:"ranking"`
}

// PostPart creates or updates a spare part keyed by its OEM code.
func (h *Handler) PostPart(c *gin.Context) {
	var req postPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	oem := strings.TrimSpace(req.OemCode)
	if oem == "" {
		badRequest(c, "oem_code is required")
		return
	}

	part := model.SparePart{
		OemCode:     oem,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Ranking:     req.Ranking,
	}
	if err := h.store.UpsertSparePart(c.Request.Context(), &part); err != nil {
		h.respondError(c, apperr.Storage("upsert spare part", err))
		return
	}
	h.cache.Flush()
	c.JSON(http.StatusOK, part)
}

// wrapStorage classifies store errors other than ErrNotFound as storage failures.
func wrapStorage(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return apperr.Storage(op, err)
}
