package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/meridian-legal/docvault-api/api/swagger"
	"github.com/meridian-legal/docvault-api/internal/handler"
	"github.com/meridian-legal/docvault-api/internal/middleware"
	"github.com/meridian-legal/docvault-api/internal/models"
	"github.com/meridian-legal/docvault-api/internal/repository"
	"github.com/meridian-legal/docvault-api/internal/service"
	"github.com/meridian-legal/docvault-api/pkg/cache"
	"github.com/meridian-legal/docvault-api/pkg/config"
	"github.com/meridian-legal/docvault-api/pkg/database"
	"github.com/meridian-legal/docvault-api/pkg/logger"
	corsmiddleware "github.com/meridian-legal/docvault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/meridian-legal/docvault-api/pkg/middleware/requestid"
	"github.com/meridian-legal/docvault-api/pkg/storage"
)

// @title DocVault API
// @version 1.0.0
// @description Secure document-link service for the client portal
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, attempt limiting disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewDocumentLinkRepository(db)
	attemptRepo := repository.NewAttemptRepository(redisClient)
	signer := storage.NewDownloadSigner(cfg.Downloads.SigningSecret, cfg.Downloads.TTL)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	linkService := service.NewDocumentLinkService(linkRepo, attemptRepo, signer, validate, logr, metrics, service.DocumentLinkConfig{
		BcryptCost:    cfg.Links.BcryptCost,
		TokenBytes:    cfg.Links.TokenBytes,
		RateLimit:     cfg.RateLimit.Enabled && redisClient != nil,
		MaxAttempts:   cfg.RateLimit.MaxAttempts,
		AttemptWindow: cfg.RateLimit.Window,
	})

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportService = service.NewExportService(linkRepo, logr)
	}

	authHandler := handler.NewAuthHandler(authService)
	linkHandler := handler.NewDocumentLinkHandler(linkService, exportService)
	publicHandler := handler.NewPublicLinkHandler(linkService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
	admin.GET("/document-links", linkHandler.List)
	admin.POST("/document-links", linkHandler.Create)
	admin.GET("/document-links/export", linkHandler.Export)
	admin.GET("/document-links/:id", linkHandler.Get)
	admin.PUT("/document-links/:id", linkHandler.Update)
	admin.DELETE("/document-links/:id", linkHandler.Delete)
	admin.GET("/document-links/:id/download", linkHandler.Download)

	public := api.Group("/public")
	public.POST("/document-links/:token/verify", publicHandler.Verify)
	public.POST("/document-links/:token/upload", publicHandler.Upload)
	public.GET("/downloads/:token", publicHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
