package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/config"
	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/email"
	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/archivesocial/archive/backend/internal/handlers"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/middleware"
	"github.com/archivesocial/archive/backend/internal/news"
	"github.com/archivesocial/archive/backend/internal/search"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/archivesocial/archive/backend/internal/stories"
	"github.com/archivesocial/archive/backend/internal/telemetry"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/archivesocial/archive/backend/internal/validation"
	"github.com/archivesocial/archive/backend/internal/websocket"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Upload bodies are capped a little above the largest accepted image
const maxUploadBody = storage.MaxImageSize + 1<<20

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== aRchive server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.Log.Warn("Sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	metrics.Initialize()

	if err := database.Initialize(cfg.Database, cfg.Environment); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()
	if cfg.Telemetry.Enabled {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.Log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	imageStore, err := storage.New(startupCtx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	var mailer email.Sender = email.NewLogSender()
	if cfg.Email.Enabled() {
		ses, err := email.NewSESSender(cfg.Email.AWSRegion, cfg.Email.FromEmail, cfg.Email.FromName)
		if err != nil {
			logger.Log.Warn("SES unavailable, confirmation links will only be logged", zap.Error(err))
		} else {
			mailer = ses
		}
	}

	var esClient *search.Client
	if cfg.ElasticsearchURL != "" {
		esClient, err = search.NewClient(cfg.ElasticsearchURL)
		if err != nil {
			logger.Log.Warn("Elasticsearch unavailable, search falls back to the database", zap.Error(err))
			esClient = nil
		} else {
			if err := esClient.EnsureIndices(startupCtx); err != nil {
				logger.Log.Warn("Failed to create search indices", zap.Error(err))
			}
			go func() {
				if err := esClient.Backfill(context.Background()); err != nil {
					logger.Log.Warn("Search backfill failed", zap.Error(err))
				}
			}()
		}
	}

	validator := validation.NewServiceValidator(cfg.RequiredServices)
	validator.Register(validation.ServiceDatabase, validation.DatabaseCheck())
	validator.Register(validation.ServiceStorage, validation.StorageCheck(imageStore))
	if redisClient != nil {
		validator.Register(validation.ServiceRedis, validation.RedisCheck(redisClient))
	}
	if esClient != nil {
		validator.Register(validation.ServiceElasticsearch, validation.ElasticsearchCheck(esClient))
	}
	if err := validator.ValidateServices(startupCtx); err != nil {
		logger.Log.Fatal("Required service unavailable", zap.Error(err))
	}

	authService := auth.NewService(auth.Options{
		JWTSecret:                []byte(cfg.Auth.JWTSecret),
		TokenTTL:                 cfg.Auth.TokenTTL,
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
		Mailer:                   mailer,
		Redis:                    redisClient,
		PublicBaseURL:            cfg.Storage.PublicBaseURL,
	})

	wsHub := websocket.NewHub()
	wsHub.Start()
	wsHandler := websocket.NewHandler(wsHub, authService, auth.TokenFromRequest, originPatterns(cfg.CORSAllowedOrigins))

	// Only index when a live client exists so a nil *search.Client is never boxed
	var indexer social.Indexer
	if esClient != nil {
		indexer = esClient
	}

	notifications := social.NewNotificationService(wsHub)
	follows := social.NewFollowService(notifications)
	likes := social.NewLikeService(notifications)
	newsClient := news.NewClient(news.Config{
		GNewsAPIKey:    cfg.News.GNewsAPIKey,
		GuardianAPIKey: cfg.News.GuardianAPIKey,
		CacheTTL:       cfg.News.CacheTTL,
		Timeout:        cfg.News.Timeout,
	}, redisClient)

	h := handlers.NewHandlers(handlers.Services{
		Auth:          authService,
		Feed:          feed.NewService(newsClient, follows, likes, nil),
		Posts:         social.NewPostService(imageStore, indexer, likes),
		Likes:         likes,
		Comments:      social.NewCommentService(notifications),
		Follows:       follows,
		Notifications: notifications,
		Profiles:      social.NewProfileService(imageStore, follows, indexer),
		Stories:       stories.NewService(imageStore, cfg.Stories.TTL),
		Search:        search.NewService(esClient, likes),
	})
	h.SetWebSocketHandler(wsHandler)
	h.SetServiceValidator(validator)

	storyCleanup := stories.NewCleanupService(imageStore, cfg.Stories.CleanupInterval)
	storyCleanup.Start()
	defer storyCleanup.Stop()

	util.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.SentryDSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(telemetry.ServiceName)...)
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 || cfg.CORSAllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "X-Cache", "Retry-After"}
	r.Use(cors.New(corsConfig))

	// Websocket upgrades must not be wrapped by gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws", "/metrics"})))
	r.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig(), redisClient))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if local, ok := imageStore.(*storage.LocalStore); ok {
		r.Static("/uploads", local.BasePath())
	}

	h.RegisterRoutes(r, handlers.RouteMiddleware{
		RequireAuth:  authService.RequireAuth(),
		OptionalAuth: authService.OptionalAuth(),
		AuthLimit:    middleware.RateLimit(middleware.AuthRateLimitConfig(), redisClient),
		UploadLimit: func(c *gin.Context) {
			middleware.BodySizeLimit(maxUploadBody)(c)
			if c.IsAborted() {
				return
			}
			middleware.RateLimit(middleware.UploadRateLimitConfig(), redisClient)(c)
		},
		SearchCache: middleware.ResponseCacheMiddleware(redisClient, 30*time.Second),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("aRchive backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHub.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(ctx, tp); err != nil {
		logger.Log.Warn("Tracer shutdown warning", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// originPatterns turns CORS origins into websocket origin patterns (host only)
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		patterns = append(patterns, o)
	}
	return patterns
}
