package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/dipswitch"
	"printer-docs-backend/internal/importer"
	"printer-docs-backend/internal/mw"
	"printer-docs-backend/internal/search"
	"printer-docs-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	search    *search.Service
	importer  *importer.Service
	dipswitch *dipswitch.Service
	cache     *mw.ResponseCache
	log       *zap.Logger
}

// NewHandler creates a new API handler. cache may be nil.
func NewHandler(
	s store.Store,
	searchSvc *search.Service,
	importSvc *importer.Service,
	dipSvc *dipswitch.Service,
	cache *mw.ResponseCache,
	log *zap.Logger,
) *Handler {
	return &Handler{
		store:     s,
		search:    searchSvc,
		importer:  importSvc,
		dipswitch: dipSvc,
		cache:     cache,
		log:       log.Named("api"),
	}
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case apperr.IsInput(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageOf returns the client-facing text for err.
func messageOf(err error, status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "request body too large"
	case http.StatusNotFound:
		return "not found"
	}
	return apperr.Message(err)
}

func (h *Handler) logFailure(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
	}
}

// respondError writes {"error": ...} with the mapped status.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	h.logFailure(c, status, err)
	c.JSON(status, gin.H{"error": messageOf(err, status)})
}

// badRequest reports a malformed request.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
