package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

// EnvironmentHandler serves measures, thresholds and alerts.
type EnvironmentHandler struct {
	identity
	env *services.EnvironmentService
}

func NewEnvironmentHandler(users *services.UserService, env *services.EnvironmentService) *EnvironmentHandler {
	return &EnvironmentHandler{identity: identity{users}, env: env}
}

// measureResponse is a stored measure and the alert it raised, if any.
type measureResponse struct {
	*models.EnvironmentMeasure
	Alert *models.EnvironmentAlert `json:"alert,omitempty"`
}

func (h *EnvironmentHandler) ListMeasures(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	siteID, ok := queryUint(c, "site_id")
	if !ok {
		return
	}
	f := services.MeasureFilter{SiteID: siteID, MeasurementType: models.MeasurementType(c.Query("measurement_type"))}
	list, err := h.env.ListMeasures(c.Request.Context(), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *EnvironmentHandler) GetMeasure(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	m, err := h.env.GetMeasure(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, m)
}

// CreateMeasure records a reading and evaluates it against its threshold.
func (h *EnvironmentHandler) CreateMeasure(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	var in services.MeasureInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	m, alert, err := h.env.RecordMeasure(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, measureResponse{EnvironmentMeasure: m, Alert: alert})
}

func (h *EnvironmentHandler) ListThresholds(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.env.ListThresholds(c.Request.Context(), page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *EnvironmentHandler) GetThreshold(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	th, err := h.env.GetThreshold(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, th)
}

func (h *EnvironmentHandler) CreateThreshold(c *gin.Context) {
	var in services.ThresholdInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	th, err := h.env.CreateThreshold(c.Request.Context(), in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, th)
}

func (h *EnvironmentHandler) UpdateThreshold(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	th, err := h.env.GetThreshold(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	in := services.ThresholdInputFrom(th)
	if !httpx.BindJSON(c, &in) {
		return
	}
	th, err = h.env.UpdateThreshold(c.Request.Context(), id, in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, th)
}

func (h *EnvironmentHandler) DeleteThreshold(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.env.DeleteThreshold(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAlerts shows active alerts unless ?status says otherwise
// (acknowledged, resolved or all).
func (h *EnvironmentHandler) ListAlerts(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	siteID, ok := queryUint(c, "site_id")
	if !ok {
		return
	}
	list, err := h.env.ListAlerts(c.Request.Context(), services.AlertFilter{Status: c.Query("status"), SiteID: siteID}, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *EnvironmentHandler) GetAlert(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.env.GetAlert(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, a)
}

func (h *EnvironmentHandler) ResolveAlert(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.env.Resolve(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, a)
}

func (h *EnvironmentHandler) AcknowledgeAlert(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.env.Acknowledge(c.Request.Context(), id, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, a)
}
