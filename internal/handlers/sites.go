package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

type SiteHandler struct {
	identity
	sites *services.SiteService
}

func NewSiteHandler(users *services.UserService, sites *services.SiteService) *SiteHandler {
	return &SiteHandler{identity: identity{users}, sites: sites}
}

func (h *SiteHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	f := services.SiteFilter{
		Status:      models.SiteStatus(c.Query("status")),
		MineralType: models.MineralType(c.Query("mineral_type")),
		Region:      c.Query("region"),
		Search:      c.Query("search"),
	}
	list, err := h.sites.List(c.Request.Context(), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *SiteHandler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	site, err := h.sites.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, site)
}

func (h *SiteHandler) Create(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	var in services.SiteInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	site, err := h.sites.Create(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, site)
}

// Update serves PUT and PATCH. The body is decoded over the current values
// so a PATCH only needs the changed fields.
func (h *SiteHandler) Update(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	site, err := h.sites.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	in := services.SiteInputFrom(site)
	if !httpx.BindJSON(c, &in) {
		return
	}
	site, err = h.sites.Update(c.Request.Context(), id, in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, site)
}

func (h *SiteHandler) Delete(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.sites.Delete(c.Request.Context(), id, actor); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SiteHandler) LogOperation(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Description string `json:"description"`
	}
	if !httpx.BindJSON(c, &in) {
		return
	}
	op, err := h.sites.LogOperation(c.Request.Context(), id, in.Description, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, op)
}

func (h *SiteHandler) Operations(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.sites.Operations(c.Request.Context(), id, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *SiteHandler) Statistics(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	stats, err := h.sites.Statistics(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, stats)
}
