// @title           Hotel API
// @version         1.0
// @description     Booking, pricing, billing and catalogue API for hotel front desks.
// @BasePath        /
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "hotelapi/docs"
	"hotelapi/internal/auth"
	"hotelapi/internal/events"
	"hotelapi/internal/httpapi"
	"hotelapi/pkg/blob"
	"hotelapi/pkg/cache"
	"hotelapi/pkg/config"
	"hotelapi/pkg/db"
	"hotelapi/pkg/logger"
	"hotelapi/pkg/metrics"
	"hotelapi/pkg/natsclient"
)

func main() {
	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, zap.String("service", "hotelapi"), zap.String("env", cfg.AppEnv)); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Log.Sync() }()
	log := logger.Log

	// Amounts go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProd() {
			log.Fatal("JWT_SECRET is required in prod")
		}
		log.Warn("JWT_SECRET not set, session login disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	var keyCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "hotelapi:")
		if err != nil {
			log.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rc.Close() }()
		keyCache = rc
	}

	var publisher events.Publisher = natsclient.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := natsclient.New(natsclient.Config{URL: cfg.NATS.URL, Name: "hotelapi", SubjectPrefix: cfg.NATS.SubjectPrefix})
		if err != nil {
			log.Fatal("nats", zap.Error(err))
		}
		defer nc.Close()
		publisher = nc
	}

	var blobs blob.Store = blob.NewPostgres(conn)
	if cfg.Storage.Bucket != "" {
		s3, err := blob.NewS3(ctx, cfg.Storage)
		if err != nil {
			log.Fatal("s3", zap.Error(err))
		}
		blobs = s3
		log.Info("documents stored in bucket", zap.String("bucket", cfg.Storage.Bucket))
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:     cfg,
		DB:      conn,
		Auth:    auth.NewService(conn, keyCache, cfg.Auth),
		Blobs:   blobs,
		Events:  publisher,
		Metrics: metrics.New(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http serve", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}
