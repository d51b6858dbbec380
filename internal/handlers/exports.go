package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

const (
	// maxUploadMemory bounds the multipart form held in memory; larger parts
	// spill to temporary files.
	maxUploadMemory = 10 << 20
	// MaxUploadSize bounds the whole upload request body.
	MaxUploadSize = 20 << 20
)

type ExportHandler struct {
	identity
	exports *services.ExportService
}

func NewExportHandler(users *services.UserService, exports *services.ExportService) *ExportHandler {
	return &ExportHandler{identity: identity{users}, exports: exports}
}

func (h *ExportHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	f := services.ExportFilter{Status: models.ExportStatus(c.Query("status")), Search: c.Query("search")}
	list, err := h.exports.List(c.Request.Context(), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *ExportHandler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	e, err := h.exports.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, e)
}

func (h *ExportHandler) Create(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	var in services.ExportInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	e, err := h.exports.Create(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, e)
}

func (h *ExportHandler) Update(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	e, err := h.exports.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	in := services.ExportInputFrom(e)
	if !httpx.BindJSON(c, &in) {
		return
	}
	e, err = h.exports.Update(c.Request.Context(), id, in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, e)
}

func (h *ExportHandler) Delete(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.exports.Delete(c.Request.Context(), id, actor); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// step runs one workflow transition, such as ExportService.Approve, on
// the export of the path.
func (h *ExportHandler) step(run func(ctx context.Context, id uint, actor *models.User) (*models.Export, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.current(c)
		if !ok {
			return
		}
		id, ok := httpx.ParamID(c, "id")
		if !ok {
			return
		}
		e, err := run(c.Request.Context(), id, actor)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		httpx.JSON(c, http.StatusOK, e)
	}
}

func (h *ExportHandler) Approve() gin.HandlerFunc { return h.step(h.exports.Approve) }
func (h *ExportHandler) Reject() gin.HandlerFunc  { return h.step(h.exports.Reject) }
func (h *ExportHandler) Ship() gin.HandlerFunc    { return h.step(h.exports.Ship) }
func (h *ExportHandler) Deliver() gin.HandlerFunc { return h.step(h.exports.Deliver) }

// UploadDocument reads a multipart form with document_type and
// document_file.
func (h *ExportHandler) UploadDocument(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSONError(c, http.StatusRequestEntityTooLarge, "upload too large", map[string]int64{"max_bytes": tooLarge.Limit})
			return
		}
		httpx.JSONError(c, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	up := services.Upload{Type: models.DocumentType(c.PostForm("document_type"))}
	if fh, err := c.FormFile("document_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			httpx.Error(c, err)
			return
		}
		defer f.Close()
		up.FileName = fh.Filename
		up.Content = f
	}
	doc, err := h.exports.UploadDocument(c.Request.Context(), id, up, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, doc)
}

func (h *ExportHandler) Documents(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	docs, err := h.exports.Documents(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, docs)
}
