package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

// ExtractionHandler serves the extraction ledger and the stocks derived
// from it.
type ExtractionHandler struct {
	identity
	extractions *services.ExtractionService
}

func NewExtractionHandler(users *services.UserService, extractions *services.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{identity: identity{users}, extractions: extractions}
}

func (h *ExtractionHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	siteID, ok := queryUint(c, "site_id")
	if !ok {
		return
	}
	f := services.ExtractionFilter{SiteID: siteID, Status: models.ExtractionStatus(c.Query("status"))}
	list, err := h.extractions.List(c.Request.Context(), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

// BySite requires ?site_id.
func (h *ExtractionHandler) BySite(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	siteID, ok := queryUint(c, "site_id")
	if !ok {
		return
	}
	list, err := h.extractions.BySite(c.Request.Context(), siteID, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *ExtractionHandler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	e, err := h.extractions.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, e)
}

func (h *ExtractionHandler) Create(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	var in services.ExtractionInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	e, err := h.extractions.Record(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, e)
}

func (h *ExtractionHandler) Update(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	e, err := h.extractions.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	in := services.ExtractionInputFrom(e)
	if !httpx.BindJSON(c, &in) {
		return
	}
	e, err = h.extractions.Update(c.Request.Context(), id, in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, e)
}

func (h *ExtractionHandler) Delete(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.extractions.Delete(c.Request.Context(), id, actor); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ExtractionHandler) Stocks(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.extractions.Stocks(c.Request.Context(), page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *ExtractionHandler) Stock(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	s, err := h.extractions.Stock(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, s)
}
