package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/policy"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
)

// UserHandler manages accounts. Creation is open for self-registration;
// edits are limited to the account owner and administrators.
type UserHandler struct {
	identity
	gate *policy.AuthGate
}

func NewUserHandler(users *services.UserService, authGate *policy.AuthGate) *UserHandler {
	return &UserHandler{identity: identity{users}, gate: authGate}
}

func (h *UserHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	active, ok := queryBool(c, "is_active")
	if !ok {
		return
	}
	list, err := h.users.List(c.Request.Context(), services.UserFilter{Role: roles.Role(c.Query("role")), IsActive: active}, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, ok := h.current(c)
	if !ok {
		return
	}
	httpx.JSON(c, http.StatusOK, user)
}

// Create registers an account. The role is honoured only when an
// administrator is calling.
func (h *UserHandler) Create(c *gin.Context) {
	var in services.CreateUserInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	var actor *models.User
	if uid, ok := auth.UserID(c); ok {
		actor, _ = h.users.Get(c.Request.Context(), uid)
	}
	user, err := h.users.Create(c.Request.Context(), in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, user)
}

// target loads the user of the path and checks the caller may edit it.
func (h *UserHandler) target(c *gin.Context, action gate.Action) (*models.User, *models.User, bool) {
	actor, ok := h.current(c)
	if !ok {
		return nil, nil, false
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return nil, nil, false
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return nil, nil, false
	}
	if err := h.gate.AuthorizeObject(c.Request.Context(), action, policy.ResourceUser, user); err != nil {
		httpx.Error(c, err)
		return nil, nil, false
	}
	return actor, user, true
}

// Update serves PUT and PATCH: absent fields are left unchanged.
func (h *UserHandler) Update(c *gin.Context) {
	actor, user, ok := h.target(c, gate.ActionChange)
	if !ok {
		return
	}
	var in services.UpdateUserInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	updated, err := h.users.Update(c.Request.Context(), user.ID, in, actor)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, updated)
}

// Delete disables the account; users are never removed.
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Disable(c.Request.Context(), id, actor); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	_, user, ok := h.target(c, gate.ActionChange)
	if !ok {
		return
	}
	var in struct {
		Password string `json:"password" binding:"required"`
	}
	if !httpx.BindJSON(c, &in) {
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), user.ID, in.Password); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, detail{"password changed"})
}

// ActivityHandler reads the audit trail.
type ActivityHandler struct {
	activity *services.ActivityService
}

func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

func (h *ActivityHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}
	list, err := h.activity.List(c.Request.Context(), userID, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}
