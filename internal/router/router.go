// Package router wires the gateway endpoints and their middleware onto an
// echo instance.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/handler"
	"github.com/iliyamo/miboda/internal/middleware"
)

// Deps is everything RegisterRoutes mounts. Redis, DB and Metrics may be
// nil.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	DB        handler.Pinger
	Metrics   *middleware.Metrics
	Log       *slog.Logger

	Auth      *handler.AuthHandler
	Rest      *handler.RestHandler
	Functions *handler.FunctionsHandler
	Roles     middleware.RoleChecker
}

// RegisterRoutes mounts the three API surfaces plus health and metrics.
// Every API request must carry the anon key as apikey; everything except the
// token grant also needs a bearer access token.
func RegisterRoutes(e *echo.Echo, d Deps) {
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"apikey", echo.HeaderAuthorization, echo.HeaderContentType, "Prefer"},
		ExposeHeaders: []string{"Content-Range"},
	}))

	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}

	auth := e.Group("/auth/v1", middleware.APIKey(d.Cfg.AnonKey, middleware.AuthDeny))
	auth.POST("/token", d.Auth.Token, middleware.RateLimit(d.RateLimit, d.Redis, d.Log))
	authJWT := middleware.JWTAuth(d.Cfg.JWTSecret, middleware.AuthDeny)
	auth.POST("/logout", d.Auth.Logout, authJWT)
	auth.GET("/user", d.Auth.User, authJWT)

	rest := e.Group("/rest/v1",
		middleware.APIKey(d.Cfg.AnonKey, middleware.DataDeny),
		middleware.JWTAuth(d.Cfg.JWTSecret, middleware.DataDeny),
	)
	rest.POST("/rpc/:fn", d.Rest.RPC)
	rest.GET("/:table", d.Rest.Get)
	rest.HEAD("/:table", d.Rest.Head)
	rest.POST("/:table", d.Rest.Post)
	rest.PATCH("/:table", d.Rest.Patch)
	rest.DELETE("/:table", d.Rest.Delete)

	fns := e.Group("/functions/v1",
		middleware.APIKey(d.Cfg.AnonKey, middleware.FunctionDeny),
		middleware.JWTAuth(d.Cfg.JWTSecret, middleware.FunctionDeny),
		middleware.RequireAdmin(d.Roles, middleware.FunctionDeny),
	)
	fns.POST("/create-user", d.Functions.CreateUser)
}
