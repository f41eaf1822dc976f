package handlers

import (
	"net/http"
	"strings"

	"crashgate/internal/logger"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"
	statusDeleted  = "deleted"
	statusReset    = "reset"

	errInvalidBodyPref = "invalid body: "
	errInternal        = "internal error"
	errTelemetryOff    = "telemetry is disabled"

	warnNotApplied = `199 crashgate "stored; takes effect after the next successful refresh"`
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.opLog(logKey).Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// opLog names the logger after the failing operation ("exclusion_list_failed" -> "exclusion_list"),
// giving each API failure its own category in the capture pipeline.
func (h *Handler) opLog(logKey string) *logger.Logger {
	return h.log.Named(strings.TrimSuffix(logKey, "_failed"))
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}
