package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"printer-docs-backend/internal/dipswitch"
)

// GetDipSwitches lists switches filtered by model, switch and bit.
func (h *Handler) GetDipSwitches(c *gin.Context) {
	f := dipswitch.Filter{Model: c.Query("model")}

	var ok bool
	if f.Switch, ok = intQuery(c, "switch"); !ok {
		return
	}
	if f.Bit, ok = intQuery(c, "bit"); !ok {
		return
	}

	switches, err := h.dipswitch.Query(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, switches)
}

// DeleteDipSwitches removes the whole table of one model.
func (h *Handler) DeleteDipSwitches(c *gin.Context) {
	n, err := h.dipswitch.Clear(c.Request.Context(), c.Query("model"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.cache.Flush()
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// intQuery parses an optional integer query parameter. On a malformed value it
// writes a 400 and returns ok == false.
func intQuery(c *gin.Context, key string) (*int, bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, key+" must be an integer")
		return nil, false
	}
	return &v, true
}
