package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/service"
)

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type verifyEmailReq struct {
	Token string `json:"token"`
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateProfileReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func tokenData(res *service.AuthResult) echo.Map {
	return echo.Map{
		"accessToken":  res.Access.Token,
		"refreshToken": res.Refresh.Token,
	}
}

// Register creates an account and opens the first session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return failErr(c, err)
	}

	setAuthCookies(c, h.Cfg, res)
	return respond(c, http.StatusCreated,
		"User registered successfully. Please check your email for verification.",
		echo.Map{"user": res.User.Sanitize(), "tokens": tokenData(res)})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return failErr(c, err)
	}

	setAuthCookies(c, h.Cfg, res)
	return respond(c, http.StatusOK, "Login successful",
		echo.Map{"user": res.User.Sanitize(), "tokens": tokenData(res)})
}

// Refresh rotates the presented refresh token for a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := refreshTokenFromRequest(c, req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return failErr(c, err)
	}

	setAuthCookies(c, h.Cfg, res)
	return respond(c, http.StatusOK, "Token refreshed successfully",
		echo.Map{"tokens": tokenData(res)})
}

// Logout ends the presented session. Idempotent; always clears the
// cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := refreshTokenFromRequest(c, req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, raw); err != nil {
		return failErr(c, err)
	}
	clearAuthCookies(c, h.Cfg)
	return respond(c, http.StatusOK, "Logout successful", nil)
}

// LogoutAll ends every session of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.LogoutAll(ctx, p.ID); err != nil {
		return failErr(c, err)
	}
	clearAuthCookies(c, h.Cfg)
	return respond(c, http.StatusOK, "Logged out from all devices", nil)
}

// VerifyEmail confirms an address by token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return fail(c, http.StatusBadRequest, "verification token is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, already, err := h.Auth.VerifyEmail(ctx, req.Token)
	if err != nil {
		return failErr(c, err)
	}
	msg := "Email verified successfully"
	if already {
		msg = "Email is already verified"
	}
	return respond(c, http.StatusOK, msg, echo.Map{"user": u.Sanitize()})
}

// ResendVerification regenerates and re-sends the verification token.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResendVerification(ctx, p.ID); err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "Verification email sent successfully", nil)
}

// ForgotPassword starts the reset flow. The response is identical
// whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return fail(c, http.StatusBadRequest, "email is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, service.ForgotPasswordMessage, nil)
}

// ResetPassword redeems a reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return fail(c, http.StatusBadRequest, "token and password are required")
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "Password reset successful", nil)
}

// ChangePassword swaps the password; every other device is logged
// out, the current session survives.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "current and new password are required")
	}
	if len(req.NewPassword) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	currentRefresh := refreshTokenFromRequest(c, "")

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, p.ID, req.CurrentPassword, req.NewPassword, currentRefresh); err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "Password changed successfully", nil)
}

// GetProfile returns the caller's record and live-session count.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.Auth.GetProfile(ctx, p.ID)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{
		"user":          profile.User.Sanitize(),
		"activeDevices": profile.ActiveDevices,
	})
}

// UpdateProfile applies name/email edits for the caller.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, emailChanged, err := h.Auth.UpdateProfile(ctx, p.ID, service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		return failErr(c, err)
	}
	msg := "Profile updated successfully"
	if emailChanged {
		msg = "Profile updated successfully. Please verify your new email address."
	}
	return respond(c, http.StatusOK, msg, echo.Map{"user": u.Sanitize()})
}

// reqCtx bounds handler-initiated I/O the way the rest of the
// handlers do.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
