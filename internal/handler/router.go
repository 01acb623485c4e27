package handler

import (
	"time"

	"habit-coach/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Relay         gin.HandlerFunc
	Onboarding    *OnboardingHandler
	Progress      *ProgressHandler
	SessionSecret []byte
	SessionTTL    time.Duration
}

// NewRouter mounts every route on a fresh engine with recovery and CORS.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:   []string{"X-New-Token"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/healthz", Health)
	r.POST("/api/execute", cfg.Relay)
	r.POST("/api/onboarding", cfg.Onboarding.Submit)

	api := r.Group("/api", middleware.SessionAuth(cfg.SessionSecret, cfg.SessionTTL))
	api.GET("/plan", cfg.Progress.Plan)
	api.DELETE("/plan", cfg.Progress.Restart)
	api.GET("/progress", cfg.Progress.Progress)
	api.POST("/progress/entries", cfg.Progress.CheckIn)
	api.POST("/progress/plant", cfg.Progress.Plant)
	return r
}
