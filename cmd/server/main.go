package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"realty/internal/app"
	"realty/internal/config"
	"realty/internal/handler"
	"realty/pkg/log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	defer log.Sync()

	log.Infow("Prague realty assistant", "version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	gin.SetMode(cfg.Server.GinMode)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize", err)
	}
	defer a.Close()

	router := newRouter(cfg, a)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	// Graceful shutdown
	go func() {
		log.Infof("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shut down", err)
	}
	log.Info("Server stopped")
}

func newRouter(cfg *config.Config, a *app.App) *gin.Engine {
	chatHandler := handler.NewChatHandler(a.Assistant)
	indexHandler := handler.NewIndexHandler(a.Knowledge)
	statsHandler := handler.NewStatsHandler(a.Listings, cfg.Retrieval.OverviewDistricts, 50)

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	for _, origin := range strings.Split(cfg.Server.AllowedOrigins, ",") {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, strings.TrimSpace(origin))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		health := gin.H{
			"status":     "healthy",
			"service":    "realty-assistant",
			"version":    Version,
			"ai_enabled": a.AI.IsEnabled(),
		}
		if err := a.Listings.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			health["status"] = "unhealthy"
			health["error"] = err.Error()
		}
		c.JSON(status, health)
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		// Conversation endpoints
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.POST("/chat/stream", chatHandler.ChatStream)
		apiV1.POST("/chat/reset", chatHandler.Reset)
		apiV1.GET("/chat/:session/history", chatHandler.History)
		apiV1.POST("/intent", chatHandler.Classify)
		apiV1.POST("/retrieve", chatHandler.Retrieve)

		// Vector index endpoints
		apiV1.GET("/index", indexHandler.Status)
		apiV1.POST("/index/build", indexHandler.Build)

		// Listing statistics
		apiV1.GET("/stats", statsHandler.Market)
		apiV1.GET("/stats/districts", statsHandler.Districts)
		apiV1.GET("/stats/compare", statsHandler.Compare)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}
