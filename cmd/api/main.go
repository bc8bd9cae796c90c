//	@title			Site API
//	@version		1.0
//	@description	Content backend for the marketing site: media uploads, newsletter subscribers, admin login.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/marketsite/api/internal/auth"
	"github.com/marketsite/api/internal/config"
	"github.com/marketsite/api/internal/db"
	"github.com/marketsite/api/internal/logger"
	appMiddleware "github.com/marketsite/api/internal/middleware"
	"github.com/marketsite/api/internal/storage"
	"github.com/marketsite/api/internal/subscriber"
	"github.com/marketsite/api/internal/upload"

	_ "github.com/marketsite/api/docs/swagger"
)

func main() {
	cfg := config.Load()
	logger.Init("site-api", cfg.LogLevel)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}
	defer closeStore()

	if cfg.StorageBucket == "" {
		logger.Warn(ctx, "STORAGE_BUCKET is not set; uploads will fail until it is configured")
	}

	// Wire dependencies: repository → service → handler
	uploadSvc := upload.NewService(store, upload.NewResolver(cfg.StorageBucket, upload.FirebaseSuffixes), upload.Options{
		Rules:        upload.ImageRules(cfg.UploadMaxBytes),
		KeyPrefix:    cfg.StorageKeyPrefix,
		SignedURLTTL: cfg.SignedURLTTL,
		Timeout:      cfg.UploadTimeout,
		MaxFiles:     cfg.UploadMaxFiles,
	})
	uploadHandler := upload.NewHandler(uploadSvc)

	subscriberSvc := subscriber.NewService(subscriber.NewRepository(pool))
	subscriberHandler := subscriber.NewHandler(subscriberSvc)

	authHandler := auth.NewHandler(auth.NewService(cfg))
	requireAdmin := appMiddleware.RequireAuth(cfg.JWTSecret)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Route("/upload", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", uploadHandler.UploadSingle)
			r.Post("/multiple", uploadHandler.UploadMultiple)
		})

		r.Route("/subscribers", func(r chi.Router) {
			r.Post("/", subscriberHandler.Subscribe)
			r.With(requireAdmin).Get("/", subscriberHandler.List)
			r.With(requireAdmin).Delete("/{id}", subscriberHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.UploadTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "server listening", logger.Fields{
			"port":     cfg.Port,
			"env":      cfg.AppEnv,
			"provider": cfg.StorageProvider,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	logger.Info(ctx, "shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "forced shutdown", err)
		return
	}

	logger.Info(ctx, "server stopped")
}

// newStore builds the object store selected by STORAGE_PROVIDER.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StorageProvider {
	case config.ProviderGCS:
		s, err := storage.NewGCSStore(ctx, cfg.GCSCredentialsFile, cfg.GCSSigningEmail, cfg.GCSSigningPrivateKey)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.ProviderMinio:
		s, err := storage.NewMinioStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StoragePublicBase, cfg.StorageUseSSL)
		if err != nil {
			return nil, nil, err
		}
		if got := s.URLLifetime(cfg.SignedURLTTL); got < cfg.SignedURLTTL {
			logger.Warn(ctx, "SIGNED_URL_TTL exceeds the presign limit; upload URLs will expire early unless STORAGE_PUBLIC_BASE is set", logger.Fields{
				"requested": cfg.SignedURLTTL.String(),
				"effective": got.String(),
			})
		}
		if cfg.StoragePublicBase != "" && cfg.StorageBucket != "" {
			bucket := upload.NormalizeBucket(cfg.StorageBucket)
			if err := s.EnsurePublicRead(ctx, bucket); err != nil {
				logger.Warn(ctx, "could not apply public-read policy", logger.Fields{"bucket": bucket, "error": err.Error()})
			}
		}
		return s, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_PROVIDER %q", cfg.StorageProvider)
	}
}
