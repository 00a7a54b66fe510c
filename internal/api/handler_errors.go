package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/search"
)

// GetErrors searches the error codes of one model.
//
//	GET /api/errors?model=C4080&code=01-01&limit=10&summary=1
func (h *Handler) GetErrors(c *gin.Context) {
	q := search.Query{
		Model:   c.Query("model"),
		Code:    c.Query("code"),
		Summary: isTruthy(c.Query("summary")),
	}
	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		q.Limit = &limit
	}

	codes, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}

func isTruthy(v string) bool {
	return v == "1" || v == "true"
}

type partLink struct {
	PartID  uuid.UUID `json:"part_id" binding:"required"`
	Ranking int       `json:"ranking"`
}

type putErrorPartsRequest struct {
	Parts []partLink `json:"parts" binding:"dive"`
}

// PutErrorParts replaces the ranked spare parts of one error code and returns
// the new list.
func (h *Handler) PutErrorParts(c *gin.Context) {
	errorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid error id")
		return
	}

	var req putErrorPartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	links := make([]model.ErrorPart, 0, len(req.Parts))
	seen := make(map[uuid.UUID]bool, len(req.Parts))
	for _, p := range req.Parts {
		if seen[p.PartID] {
			badRequest(c, "part "+p.PartID.String()+" is listed twice")
			return
		}
		seen[p.PartID] = true
		links = append(links, model.ErrorPart{PartID: p.PartID, Ranking: p.Ranking})
	}

	ctx := c.Request.Context()
	if err := h.store.ReplaceErrorParts(ctx, errorID, links); err != nil {
		h.respondError(c, wrapStorage("replace error parts", err))
		return
	}
	h.cache.Flush()

	parts, err := h.store.PartsForError(ctx, errorID)
	if err != nil {
		h.respondError(c, apperr.Storage("load error parts", err))
		return
	}
	c.JSON(http.StatusOK, parts)
}
