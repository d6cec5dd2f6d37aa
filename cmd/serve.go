package main

import (
	"context"
	"fmt"
	"net/http"
	"studydrive-downloader/config"
	_ "studydrive-downloader/docs"
	"studydrive-downloader/internal/handler"
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/ports"
	"studydrive-downloader/internal/repository"
	"studydrive-downloader/internal/security"
	"studydrive-downloader/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запуск HTTP сервера",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к БД: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	docRepo := repository.NewDocumentRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	downloadRepo := repository.NewDownloadRepository(db)

	if err := counterRepo.Ensure(ctx, db, model.DownloadCounterName); err != nil {
		return err
	}

	var cacheRepo ports.CacheRepository
	var locker ports.FetchLocker
	if cfg.RedisConfig.Enabled {
		redisClient, err := config.SetupRedis(&cfg.RedisConfig)
		if err != nil {
			return fmt.Errorf("ошибка подключения к Redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("Ошибка при закрытии Redis: %v", err)
			}
		}()

		cacheRepo = repository.NewCacheRepository(redisClient, cfg.TTL.DocumentCache)
		locker = repository.NewLockRepository(redisClient, cfg.TTL.FetchLock)
	}

	storage, err := setupStorage(ctx, cfg)
	if err != nil {
		return err
	}

	resolver := service.NewReferenceResolver(cfg.Source.BaseURL, cfg.Source.Hosts)
	fetcher := service.NewRemoteFetcher(&cfg.Source, &http.Client{})
	orchestrator := service.NewFetchOrchestrator(docRepo, cacheRepo, locker, fetcher, storage, db, service.FetchPolicy{
		Workers:     cfg.Fetch.Workers,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		RetryDelay:  cfg.Fetch.RetryDelay,
	})
	docService := service.NewDocumentService(resolver, orchestrator, docRepo, counterRepo, downloadRepo, storage, db, cfg.TTL.Download, cfg.TTL.CounterRead)

	docHandler := handler.NewDocumentHandler(docService)
	fileHandler := handler.NewFileHandler(docService)

	srv, router := config.SetupServer(cfg.ServerAddr)

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	var auth func(http.Handler) http.Handler
	if cfg.Auth.Enabled {
		auth = security.ServiceAuthMiddleware(security.NewJWTService(&cfg.Auth))
	}

	setupDocumentRoutes(router, docHandler, auth)
	setupFileRoutes(router, fileHandler)

	runServer(ctx, srv, orchestrator.Wait)
	return nil
}

func setupStorage(ctx context.Context, cfg *config.AppConfig) (ports.BlobStorage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания S3 сервиса: %w", err)
		}
		return s3Service, nil
	default:
		return repository.NewFileCacheRepository(cfg.Storage.Dir)
	}
}

func setupDocumentRoutes(r chi.Router, h *handler.DocumentHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}

		r.Get("/stats", h.GetStats)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.SubmitDocument)
			r.Get("/{id}", h.GetDocument)
			r.Head("/{id}", h.GetDocumentHead)
			r.Post("/{id}/downloads", h.StartDownload)
			r.Put("/{slug}/{id}", h.FetchDocument)
			r.Post("/{slug}/{id}/reset", h.ResetDocument)
		})
	})
}

func setupFileRoutes(r chi.Router, h *handler.FileHandler) {
	r.Get("/download/{token}/{file_name}", h.Download)
	r.Get("/preview/{id}", h.Preview)
}
