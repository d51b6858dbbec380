package httpx

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/services"
	"github.com/diewo77/sgm/internal/validation"
)

// PageResponse is the envelope of every list endpoint.
type PageResponse[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

// ParsePage reads ?page and ?page_size, answering 400 when either is not
// a positive integer.
func ParsePage(c *gin.Context) (services.Page, bool) {
	v := validation.Violations{}
	page := services.Page{Number: 1, Size: services.DefaultPageSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("page", "invalid")
		}
		page.Number = n
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("page_size", "invalid")
		}
		page.Size = n
	}
	if !v.Empty() {
		JSONError(c, http.StatusBadRequest, "invalid pagination", v)
		return services.Page{}, false
	}
	return page.Normalize(), true
}

// Paginated writes a list page.
func Paginated[T any](c *gin.Context, list services.List[T]) {
	items := list.Items
	if items == nil {
		items = []T{}
	}
	JSON(c, http.StatusOK, PageResponse[T]{
		Count:    list.Count,
		Page:     list.Page.Number,
		PageSize: list.Page.Size,
		Results:  items,
	})
}

// ParamID reads a positive integer path parameter.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		JSONError(c, http.StatusNotFound, "not found", nil)
		return 0, false
	}
	return uint(id), true
}
