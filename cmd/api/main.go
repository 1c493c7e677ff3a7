package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "rentledger/api/swagger" // swagger docs
	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/config"
	"rentledger/internal/database"
	"rentledger/internal/handler"
	"rentledger/internal/logger"
	"rentledger/internal/middleware"
	"rentledger/internal/repository"
	"rentledger/internal/service"
	"rentledger/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Rentledger API
// @version         1.0
// @description     Access control, profiles and plan entitlements for the rentledger property management backend.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "rentledger-api")
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	db, err := database.NewConnection(cfg.DatabaseDSN, logg)
	if err != nil {
		logg.Fatal("database connection failed", zap.Error(err))
	}
	logg.Info("connected to PostgreSQL")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// authenticated requests fail until redis is reachable
		logg.Warn("redis not reachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := websocket.NewHub(logg.Named("ws"))
	go wsHub.Run(ctx)

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	planRepo := repository.NewPlanRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	revocations := repository.NewRevocationStore(rdb)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	resolver := access.NewResolver(planRepo, profileRepo)

	accessService := service.NewAccessService(resolver, userRepo, orgRepo, planRepo, profileRepo, logg.Named("access"))
	profileService := service.NewProfileService(profileRepo, userRepo, auditRepo, txManager, accessService, logg.Named("profiles"))
	featureService := service.NewFeatureService(planRepo, auditRepo, txManager, accessService, logg.Named("features"))
	organizationService := service.NewOrganizationService(orgRepo, userRepo, planRepo, auditRepo, txManager, profileService, accessService, logg.Named("organizations"))
	notificationService := service.NewNotificationService(notificationRepo, accessService, wsHub, logg.Named("notifications"))
	userService := service.NewUserService(userRepo, revocations, tokens, accessService, logg.Named("users"))
	auditService := service.NewAuditService(auditRepo, accessService)

	if cfg.SeedDefaults {
		if err := featureService.SeedDefaults(ctx); err != nil {
			logg.Fatal("failed to seed plans and features", zap.Error(err))
		}
		if err := profileService.SeedTemplates(ctx); err != nil {
			logg.Fatal("failed to seed profile templates", zap.Error(err))
		}
	}
	if cfg.SuperAdminEmail != "" && cfg.SuperAdminPassword != "" {
		if err := userService.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
			logg.Fatal("failed to bootstrap super-admin", zap.Error(err))
		}
	}

	authn := middleware.NewAuthenticator(tokens, revocations, cfg.GinMode == gin.ReleaseMode, logg.Named("auth"))

	userHandler := handler.NewUserHandler(userService, authn)
	accessHandler := handler.NewAccessHandler(accessService, authn)
	profileHandler := handler.NewProfileHandler(profileService, authn)
	featureHandler := handler.NewFeatureHandler(featureService, accessService, authn)
	organizationHandler := handler.NewOrganizationHandler(organizationService, accessService, authn)
	notificationHandler := handler.NewNotificationHandler(notificationService, authn)
	auditHandler := handler.NewAuditHandler(auditService, authn)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(logg.Named("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, authn, accessService)
	})

	userHandler.RegisterRoutes(router.Group(""))
	accessHandler.RegisterRoutes(router.Group(""))
	profileHandler.RegisterRoutes(router.Group(""))
	featureHandler.RegisterRoutes(router.Group(""))
	organizationHandler.RegisterRoutes(router.Group(""))
	notificationHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}
	logg.Info("server exited")
}
