package handlers

import (
	"errors"
	"net/http"

	"crashgate/internal/service"

	"github.com/gin-gonic/gin"
)

// notApplied logs a stored change whose classifier refresh failed and marks the response.
func (h *Handler) notApplied(c *gin.Context, err error, kv ...interface{}) bool {
	if !errors.Is(err, service.ErrNotApplied) {
		return false
	}
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.opLog("exclusion_refresh_failed").Errorw("exclusion_refresh_failed", fields...)
	}
	c.Header("Warning", warnNotApplied)
	return true
}

// exclusionError maps service errors to status codes.
func (h *Handler) exclusionError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrInvalidKind), errors.Is(err, service.ErrEmptyPattern):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExclusionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateExclusion):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrDuplicateExclusion.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
	}
}

// @Summary      List exclusions
// @Tags         exclusions
// @Produce      json
// @Success      200  {array}   models.Exclusion
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/exclusions [get]
// @Security     BearerAuth
func (h *Handler) listExclusions(c *gin.Context) {
	list, err := h.services.Exclusions.List(c.Request.Context())
	if err != nil {
		h.exclusionError(c, "exclusion_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Create exclusion
// @Description  kind is one of exception_type, message, logger
// @Tags         exclusions
// @Accept       json
// @Produce      json
// @Param        input  body      service.ExclusionInput  true  "exclusion"
// @Success      201    {object}  models.Exclusion
// @Header       201    {string}  Warning  "set when the exclusion was stored but not yet applied"
// @Failure      400    {object}  map[string]string
// @Failure      409    {object}  map[string]string
// @Router       /api/v1/exclusions [post]
// @Security     BearerAuth
func (h *Handler) createExclusion(c *gin.Context) {
	var input service.ExclusionInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	created, err := h.services.Exclusions.Create(c.Request.Context(), input)
	if err != nil && !h.notApplied(c, err, "id", created.ID) {
		h.exclusionError(c, "exclusion_create_failed", err, "kind", input.Kind)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary      Get exclusion
// @Tags         exclusions
// @Produce      json
// @Param        id   path      string  true  "exclusion id"
// @Success      200  {object}  models.Exclusion
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/exclusions/{id} [get]
// @Security     BearerAuth
func (h *Handler) getExclusion(c *gin.Context) {
	e, err := h.services.Exclusions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.exclusionError(c, "exclusion_get_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, e)
}

// @Summary      Update exclusion
// @Tags         exclusions
// @Accept       json
// @Produce      json
// @Param        id     path      string                  true  "exclusion id"
// @Param        input  body      service.ExclusionInput  true  "exclusion"
// @Success      200    {object}  models.Exclusion
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /api/v1/exclusions/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateExclusion(c *gin.Context) {
	var input service.ExclusionInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	updated, err := h.services.Exclusions.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil && !h.notApplied(c, err, "id", c.Param("id")) {
		h.exclusionError(c, "exclusion_update_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Delete exclusion
// @Tags         exclusions
// @Produce      json
// @Param        id   path      string  true  "exclusion id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/exclusions/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteExclusion(c *gin.Context) {
	if err := h.services.Exclusions.Delete(c.Request.Context(), c.Param("id")); err != nil && !h.notApplied(c, err, "id", c.Param("id")) {
		h.exclusionError(c, "exclusion_delete_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted})
}
