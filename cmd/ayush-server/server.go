package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ayushmap/ayushmap/internal/config"
	"github.com/ayushmap/ayushmap/internal/domain/mapping"
	"github.com/ayushmap/ayushmap/internal/domain/terminology"
	"github.com/ayushmap/ayushmap/internal/domain/users"
	"github.com/ayushmap/ayushmap/internal/platform/auth"
	"github.com/ayushmap/ayushmap/internal/platform/db"
	"github.com/ayushmap/ayushmap/internal/platform/middleware"
	"github.com/ayushmap/ayushmap/internal/platform/pipeline"
)

// handlers groups everything the router mounts.
type handlers struct {
	users       *users.Handler
	mappings    *mapping.Handler
	terminology *terminology.Handler
	dbHealth    echo.HandlerFunc
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.Env)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis (optional)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		logger.Info().Msg("connected to redis")
	}

	// Terminology
	termSvc := terminology.NewService(terminology.NewICDRepoPG(pool))

	// Pipeline
	p, err := buildPipeline(cfg, termSvc, rdb, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build mapping pipeline")
	}

	// Auth
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSigningKey), cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	revocations, closeRevocations := newRevocationStore(rdb)
	defer closeRevocations()

	h := handlers{
		users:       users.NewHandler(users.NewService(users.NewUserRepoPG(pool), tokens, revocations, logger)),
		mappings:    mapping.NewHandler(mapping.NewService(mapping.NewMappingRepoPG(pool), p, logger)),
		terminology: terminology.NewHandler(termSvc),
		dbHealth:    db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }),
	}
	e := newRouter(cfg, logger, tokens, h)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).
			Str("extraction", cfg.ExtractionMode).
			Str("mapping", cfg.MappingMode).
			Str("validation", cfg.ValidationMode).
			Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newRouter(cfg *config.Config, logger zerolog.Logger, tokens *auth.TokenIssuer, h handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", h.dbHealth)

	// API: access token required except on the account endpoints.
	api := e.Group("/api",
		middleware.RateLimit(rateLimitCfg),
		middleware.RequestTimeout(cfg.RequestTimeout),
		tokens.Middleware(auth.AuthSkipper),
	)
	h.users.RegisterRoutes(api)
	h.mappings.RegisterRoutes(api)
	h.terminology.RegisterRoutes(api.Group("/v1"))
	apiDocs().RegisterRoutes(api)

	return e
}

// buildPipeline picks each stage backend from its mode flag.
func buildPipeline(cfg *config.Config, registry pipeline.CodeRegistry, rdb *redis.Client, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	vocab := pipeline.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		v, err := pipeline.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			return nil, err
		}
		vocab = v
	}

	var llm pipeline.Completer
	if cfg.ExtractionMode == config.ModeLive || cfg.MappingMode == config.ModeLive {
		llm = pipeline.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}

	var extractor pipeline.Extractor
	switch cfg.ExtractionMode {
	case config.ModeMock:
		extractor = pipeline.NewMockExtractor(vocab)
	case config.ModeLive:
		extractor = pipeline.NewLLMExtractor(llm)
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", cfg.ExtractionMode)
	}

	var mapper pipeline.Mapper
	switch cfg.MappingMode {
	case config.ModeMock:
		mapper = pipeline.NewMockMapper(vocab)
	case config.ModeLive:
		mapper = pipeline.NewLLMMapper(llm)
		if rdb != nil {
			mapper = pipeline.NewCachedMapper(mapper, rdb, cfg.MappingCacheTTL, logger)
		}
	default:
		return nil, fmt.Errorf("unknown mapping mode %q", cfg.MappingMode)
	}

	var validator pipeline.Validator
	switch cfg.ValidationMode {
	case config.ModeMock:
		validator = pipeline.NewMockValidator()
	case config.ModeRegistry:
		validator = pipeline.NewRegistryValidator(registry)
	case config.ModeLive:
		validator = pipeline.NewWHOValidator(pipeline.WHOConfig{
			BaseURL:      cfg.ICDAPIBaseURL,
			TokenURL:     cfg.ICDTokenURL,
			ClientID:     cfg.ICDClientID,
			ClientSecret: cfg.ICDClientSecret,
			Timeout:      cfg.StageTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown validation mode %q", cfg.ValidationMode)
	}

	return pipeline.New(extractor, mapper, validator, cfg.StageTimeout, logger), nil
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// newRevocationStore uses Redis when configured and process memory otherwise.
func newRevocationStore(rdb *redis.Client) (auth.RevocationStore, func()) {
	if rdb != nil {
		return auth.NewRedisRevocationStore(rdb), func() {}
	}
	store := auth.NewMemoryRevocationStore(time.Minute)
	return store, store.Close
}
