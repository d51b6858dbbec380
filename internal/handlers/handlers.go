// Package handlers exposes the use cases as a JSON API over gin.
// Handlers parse input, resolve the caller and delegate to services; every
// state change and rule lives in the services package.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

// identity loads the authenticated user of a request.
type identity struct {
	users *services.UserService
}

// current answers 401 and reports false when the request has no usable
// identity.
func (i identity) current(c *gin.Context) (*models.User, bool) {
	uid, ok := auth.UserID(c)
	if !ok {
		httpx.Error(c, gate.ErrUnauthenticated)
		return nil, false
	}
	user, err := i.users.Get(c.Request.Context(), uid)
	if errors.Is(err, services.ErrNotFound) {
		err = gate.ErrUnauthenticated
	}
	if err != nil {
		httpx.Error(c, err)
		return nil, false
	}
	return user, true
}

// queryUint reads an optional positive integer filter. An empty value is 0.
func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		httpx.JSONError(c, http.StatusBadRequest, "invalid "+name, map[string]string{name: "invalid"})
		return 0, false
	}
	return uint(n), true
}

// queryBool reads an optional boolean filter.
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		httpx.JSONError(c, http.StatusBadRequest, "invalid "+name, map[string]string{name: "invalid"})
		return nil, false
	}
	return &b, true
}

type detail struct {
	Detail string `json:"detail"`
}
