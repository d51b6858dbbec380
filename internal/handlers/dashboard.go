package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
)

// DashboardHandler serves the role landings, metrics and reports.
type DashboardHandler struct {
	identity
	dashboard *services.DashboardService
	reports   *services.ReportService
}

func NewDashboardHandler(users *services.UserService, dashboard *services.DashboardService, reports *services.ReportService) *DashboardHandler {
	return &DashboardHandler{identity: identity{users}, dashboard: dashboard, reports: reports}
}

// Redirect sends the caller to the landing of their role.
func (h *DashboardHandler) Redirect(c *gin.Context) {
	user, ok := h.current(c)
	if !ok {
		return
	}
	c.Redirect(http.StatusFound, roles.LandingFor(user.Role).Path())
}

// Landing serves the data of landing l.
func (h *DashboardHandler) Landing(l roles.Landing) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := h.current(c)
		if !ok {
			return
		}
		data, err := h.dashboard.Landing(c.Request.Context(), l, user)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		httpx.JSON(c, http.StatusOK, data)
	}
}

func (h *DashboardHandler) Summary(c *gin.Context) {
	s, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, s)
}

func (h *DashboardHandler) ListMetrics(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	activeOnly, ok := queryBool(c, "is_active")
	if !ok {
		return
	}
	f := services.MetricFilter{MetricType: models.MetricType(c.Query("metric_type")), ActiveOnly: activeOnly != nil && *activeOnly}
	list, err := h.dashboard.ListMetrics(c.Request.Context(), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *DashboardHandler) GetMetric(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	m, err := h.dashboard.GetMetric(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, m)
}

func (h *DashboardHandler) RefreshMetrics(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	var in services.PeriodInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	metrics, err := h.dashboard.RefreshMetrics(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, metrics)
}

func (h *DashboardHandler) ListReports(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.reports.List(c.Request.Context(), models.ReportType(c.Query("report_type")), page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *DashboardHandler) GetReport(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	r, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, r)
}

func (h *DashboardHandler) DeleteReport(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.reports.Delete(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DashboardHandler) GenerateExtractionReport(c *gin.Context) {
	h.generate(c, h.reports.GenerateExtractionReport)
}

func (h *DashboardHandler) GenerateExportReport(c *gin.Context) {
	h.generate(c, h.reports.GenerateExportReport)
}

func (h *DashboardHandler) generate(c *gin.Context, run func(ctx context.Context, in services.ReportInput, actor *models.User) (*models.Report, error)) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	var in services.ReportInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	r, err := run(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, r)
}

// DownloadReport streams the stored file as an attachment.
func (h *DashboardHandler) DownloadReport(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	f, err := h.reports.Open(c.Request.Context(), id, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Data(http.StatusOK, f.ContentType, f.Content)
}
