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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/cors"

	"predictive-maintenance-backend/config"
	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/api"
	"predictive-maintenance-backend/internal/db"
	"predictive-maintenance-backend/internal/live"
	"predictive-maintenance-backend/internal/metrics"
	"predictive-maintenance-backend/internal/monitor"
	"predictive-maintenance-backend/internal/mw"
	"predictive-maintenance-backend/internal/notification"
	"predictive-maintenance-backend/internal/predict"
	"predictive-maintenance-backend/internal/sink"
	"predictive-maintenance-backend/internal/store"
)

const tokenTTL = 24 * time.Hour

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "maintd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// `maintd token <subject>` prints a bearer token for the write routes.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if cfg.Auth.SecretKey == "" {
			logger.Fatalf("auth.secret_key is empty; write routes are unauthenticated")
		}
		subject := "operator"
		if len(os.Args) > 2 {
			subject = os.Args[2]
		}
		token, err := mw.IssueToken(cfg.Auth.SecretKey, subject, tokenTTL)
		if err != nil {
			logger.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	analyzer, err := cfg.Analyzer()
	if err != nil {
		logger.Fatalf("invalid analytics configuration: %v", err)
	}
	analyzers := analytics.NewHolder(analyzer)

	predictor, err := predict.Load(cfg.Model.Path)
	if err != nil {
		logger.Fatalf("failed to load prediction model: %v", err)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured, web push alerts are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	registry := metrics.New(appStore.CountMachinesByStatus)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, cfg.Webhooks)
	pool.SetRecorder(registry)
	pool.Start(ctx)

	hub := live.NewHub()
	go hub.Run(ctx)

	responses := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)

	opts := api.Options{
		Analyzers: analyzers,
		Predictor: predictor,
		Alerts:    pool,
		Hub:       hub,
		Metrics:   registry,
		WebPush:   webpushOptions,
		Cache:     responses,
	}
	if cfg.Influx.Enabled {
		influx := sink.NewInflux(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		defer influx.Close()
		opts.Sink = influx
		logger.Printf("mirroring readings to InfluxDB bucket %s", cfg.Influx.Bucket)
	}

	// Run the health monitor in the background
	monitorSvc := monitor.NewService(cfg.Monitor, appStore, analyzers, pool)
	monitorSvc.SetRecorder(registry)
	monitorSvc.SetInvalidator(responses)
	go monitorSvc.Run(ctx)

	// Analytics parameters follow edits to the config file.
	go func() {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			a, err := next.Analyzer()
			if err != nil {
				logger.Printf("ignoring analytics reload: %v", err)
				return
			}
			analyzers.Set(a)
		})
		if err != nil {
			logger.Printf("config watcher stopped: %v", err)
		}
	}()

	// Initialize router
	router := api.NewRouter(appStore, opts, cfg.Server, cfg.Auth)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: corsHandler.Handler(router),
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
