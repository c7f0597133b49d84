package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fileshare/internal/server/config"
	"fileshare/internal/server/service"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, admin service.AdminVerifier, cfg *config.Config, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewFormValidator()

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())
	e.Use(SessionGuard(handler.guard, handler.metrics, func(c echo.Context) bool {
		switch c.Path() {
		case "/logout", "/health", "/metrics":
			return true
		}
		return false
	}))

	adminOnly := AdminOnly(admin)
	uploadLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Health & metrics
	e.GET("/health", handler.HandleHealth)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Admin
	e.GET("/", handler.HandleIndex, adminOnly)
	e.POST("/upload", handler.HandleUpload, adminOnly, uploadLimiter.Middleware())
	e.POST("/toggle-visibility/:link", handler.HandleToggleVisibility, adminOnly)
	e.POST("/delete/:link", handler.HandleDelete, adminOnly)
	e.GET("/session-status", handler.HandleSessionStatus, adminOnly)

	// Links
	e.GET("/file/:link", handler.HandleFileInfo)
	e.GET("/download/:link", handler.HandleDownload)
	e.POST("/download/:link", handler.HandleDownload)
	e.GET("/preview/:link", handler.HandlePreview)
	e.POST("/preview/:link", handler.HandlePreview)

	e.GET("/files", handler.HandlePublicFiles)
	e.GET("/logout", handler.HandleLogout)

	return e
}
