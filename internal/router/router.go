// Package router wires the HTTP surface: route registration and the
// middleware ordering for each group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
)

// Deps collects everything route registration needs.
type Deps struct {
	Cfg    config.Config
	Users  service.UserStore
	Redis  *redis.Client
	Auth   *handler.AuthHandler
	Google *handler.GoogleHandler
	User   *handler.UserHandler
}

// Register mounts all routes on e.
//
// The credential endpoints sit behind the Redis token bucket so brute
// force attempts are throttled per client. The admin GETs sit behind
// the short-TTL response cache; nothing that sets cookies or varies
// per user may share that cache.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), d.Redis)
	authn := middleware.Authenticate(d.Cfg.JWTSecret, d.Users)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// Session lifecycle.
	auth := e.Group("/api/auth")
	auth.POST("/register", d.Auth.Register, limiter)
	auth.POST("/login", d.Auth.Login, limiter)
	auth.POST("/refresh-token", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/logout-all", d.Auth.LogoutAll, authn)
	auth.POST("/verify-email", d.Auth.VerifyEmail)
	auth.POST("/resend-verification", d.Auth.ResendVerification, authn)
	auth.POST("/forgot-password", d.Auth.ForgotPassword, limiter)
	auth.POST("/reset-password", d.Auth.ResetPassword, limiter)
	auth.POST("/change-password", d.Auth.ChangePassword, authn)
	auth.GET("/profile", d.Auth.GetProfile, authn)
	auth.PUT("/profile", d.Auth.UpdateProfile, authn)

	// Federated identity.
	google := auth.Group("/google")
	google.GET("", d.Google.AuthURL)
	google.GET("/callback", d.Google.Callback)
	google.POST("/register-login", d.Google.RegisterLogin, limiter)
	google.POST("/link", d.Google.Link, authn)
	google.DELETE("/unlink", d.Google.Unlink, authn)
	google.GET("/status", d.Google.Status, authn)

	// Directory.
	users := e.Group("/api/users", authn)
	users.GET("", d.User.List, adminOnly, cache)
	users.GET("/stats", d.User.Stats, adminOnly, cache)
	users.GET("/me/sessions", d.User.MySessions)
	users.DELETE("/me/sessions/:sessionId", d.User.RevokeMySession)
	users.GET("/:id", d.User.Get)
	users.PUT("/:id", d.User.Update)
	users.DELETE("/:id", d.User.Delete)
	users.PATCH("/:id/role", d.User.UpdateRole, adminOnly)
	users.PATCH("/:id/deactivate", d.User.Deactivate, adminOnly)
	users.PATCH("/:id/activate", d.User.Activate, adminOnly)
}
