package handlers

import (
	"errors"
	"net/http"

	"crashgate/internal/models"
	"crashgate/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) pipelineError(c *gin.Context, logKey string, err error) {
	switch {
	case errors.Is(err, service.ErrTelemetryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errTelemetryOff})
	case errors.Is(err, service.ErrEmptyEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err)
	}
}

// @Summary      Submit a log event
// @Description  Runs the event through the capture pipeline. The outcome is visible in /api/v1/telemetry/status.
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Param        event  body      models.LogEvent  true  "log event"
// @Success      202    {object}  map[string]string
// @Failure      400    {object}  map[string]string
// @Failure      503    {object}  map[string]string
// @Router       /api/v1/events [post]
// @Security     BearerAuth
func (h *Handler) ingestEvent(c *gin.Context) {
	var ev models.LogEvent
	if ok := h.bindJSONOrBadRequest(c, &ev); !ok {
		return
	}
	if err := h.services.Pipeline.Ingest(c.Request.Context(), ev); err != nil {
		h.pipelineError(c, "telemetry_ingest_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}

// @Summary      Pipeline status
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  models.PipelineStatus
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/telemetry/status [get]
// @Security     BearerAuth
func (h *Handler) telemetryStatus(c *gin.Context) {
	st, err := h.services.Pipeline.Status()
	if err != nil {
		h.pipelineError(c, "telemetry_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Resume sending
// @Description  Leaves the suppressed state entered after the remote service rejected the credentials
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, pipeline"
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/telemetry/reset [post]
// @Security     BearerAuth
func (h *Handler) telemetryReset(c *gin.Context) {
	if err := h.services.Pipeline.Reset(); err != nil {
		h.pipelineError(c, "telemetry_reset_failed", err)
		return
	}
	if h.log != nil {
		h.log.Infow("telemetry_reset", "operator_id", c.GetInt(operatorCtxKey))
	}
	resp := gin.H{"status": statusReset}
	if st, err := h.services.Pipeline.Status(); err == nil {
		resp["pipeline"] = st
	}
	c.JSON(http.StatusOK, resp)
}
