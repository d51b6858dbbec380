package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
)

// AdminHandler exposes the role profiles and role assignment.
// Profiles mirror the static role table and are read-only here; a user's
// permissions change only by assigning another role.
type AdminHandler struct {
	identity
}

func NewAdminHandler(users *services.UserService) *AdminHandler {
	return &AdminHandler{identity: identity{users}}
}

// Profiles lists every role profile with its permissions and user count.
func (h *AdminHandler) Profiles(c *gin.Context) {
	profiles, err := h.users.Profiles(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, gin.H{"profiles": profiles})
}

// Roles lists the assignable roles with their landing path.
func (h *AdminHandler) Roles(c *gin.Context) {
	type roleInfo struct {
		Role        roles.Role `json:"role"`
		Label       string     `json:"label"`
		Landing     string     `json:"landing"`
		Permissions []string   `json:"permissions"`
	}
	out := make([]roleInfo, 0, len(roles.All()))
	for _, r := range roles.All() {
		perms := roles.Permissions(r)
		codes := make([]string, len(perms))
		for i, p := range perms {
			codes[i] = string(p)
		}
		out = append(out, roleInfo{Role: r, Label: r.Label(), Landing: roles.LandingFor(r).Path(), Permissions: codes})
	}
	httpx.JSON(c, http.StatusOK, out)
}

// AssignRole moves a user to another role, replacing its permissions.
func (h *AdminHandler) AssignRole(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Role roles.Role `json:"role" binding:"required"`
	}
	if !httpx.BindJSON(c, &in) {
		return
	}
	user, err := h.users.Update(c.Request.Context(), id, services.UpdateUserInput{Role: &in.Role}, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, user)
}
