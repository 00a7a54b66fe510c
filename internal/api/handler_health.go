package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHealth answers liveness probes.
func GetHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
