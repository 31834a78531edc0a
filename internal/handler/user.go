package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
)

// UserHandler exposes the directory: admin listing and stats, per-user
// reads and edits, and the caller's own session management.
type UserHandler struct {
	Directory *service.DirectoryService
}

func NewUserHandler(dir *service.DirectoryService) *UserHandler {
	return &UserHandler{Directory: dir}
}

// List serves the admin directory with filters from the query string.
func (h *UserHandler) List(c echo.Context) error {
	f := repository.UserFilter{
		Search:   c.QueryParam("search"),
		Role:     c.QueryParam("role"),
		Provider: c.QueryParam("provider"),
	}
	if v := c.QueryParam("page"); v != "" {
		f.Page, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "verified must be true or false")
		}
		f.Verified = &b
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.Directory.List(ctx, f)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "", page)
}

// Stats serves the aggregate directory counters.
func (h *UserHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Directory.Stats(ctx)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "", stats)
}

// Get returns one user, for themself or an admin.
func (h *UserHandler) Get(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.Directory.Get(ctx, p, c.Param("id"))
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{
		"user":          profile.User.Sanitize(),
		"activeDevices": profile.ActiveDevices,
	})
}

type updateUserReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  *bool  `json:"isActive"`
}

// Update applies edits; which fields take effect depends on whether
// the caller is an admin.
func (h *UserHandler) Update(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Role != "" && req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		return fail(c, http.StatusBadRequest, "role must be USER or ADMIN")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Directory.Update(ctx, p, c.Param("id"), service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "User updated successfully", echo.Map{"user": u.Sanitize()})
}

type updateRoleReq struct {
	Role string `json:"role"`
}

// UpdateRole changes a user's role (admin only, never on oneself).
func (h *UserHandler) UpdateRole(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		return fail(c, http.StatusBadRequest, "role must be USER or ADMIN")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Directory.UpdateRole(ctx, p, c.Param("id"), req.Role)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "User role updated successfully", echo.Map{"user": u.Sanitize()})
}

// Deactivate disables an account and revokes its sessions.
func (h *UserHandler) Deactivate(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Directory.Deactivate(ctx, p, c.Param("id"))
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "User deactivated successfully", echo.Map{"user": u.Sanitize()})
}

// Activate re-enables an account.
func (h *UserHandler) Activate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Directory.Activate(ctx, c.Param("id"))
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "User activated successfully", echo.Map{"user": u.Sanitize()})
}

// Delete removes an account.
func (h *UserHandler) Delete(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Directory.Delete(ctx, p, c.Param("id")); err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "User deleted successfully", nil)
}

// MySessions lists the caller's active and expired sessions.
func (h *UserHandler) MySessions(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sessions, err := h.Directory.Sessions(ctx, p.ID)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"sessions": sessions})
}

// RevokeMySession ends one of the caller's sessions by id.
func (h *UserHandler) RevokeMySession(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Directory.RevokeSession(ctx, p.ID, c.Param("sessionId")); err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "Session revoked successfully", nil)
}
