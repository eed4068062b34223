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
	"github.com/spf13/pflag"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/api"
	"parking-billing-backend/internal/billing"
	"parking-billing-backend/internal/db"
	"parking-billing-backend/internal/notification"
	"parking-billing-backend/internal/registry"
	"parking-billing-backend/internal/session"
	"parking-billing-backend/internal/store"
	"parking-billing-backend/internal/tariff"
)

func main() {
	logger := log.New(os.Stdout, "parking-backend ", log.LstdFlags)

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file (overrides CONFIG_PATH)")
	pflag.Parse()
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	facilities, tariffs, err := store.CatalogFromConfig(cfg.Catalog)
	if err != nil {
		logger.Fatalf("invalid catalog configuration: %v", err)
	}
	if err := appStore.UpsertCatalog(ctx, facilities, tariffs); err != nil {
		logger.Fatalf("failed to seed catalog: %v", err)
	}
	logger.Printf("catalog seeded: %d facilities, %d tariff plans", len(facilities), len(tariffs))

	catalog := tariff.NewCatalog(appStore, time.Duration(cfg.Billing.CatalogCacheTTLSeconds)*time.Second)
	policy := billing.Policy{RoundingUnit: cfg.Billing.RoundingUnit, MinimumCharge: cfg.Billing.MinimumCharge}

	var opts []session.Option
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		opts = append(opts, session.WithNotifier(pool))
		logger.Printf("spot-freed notifications enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; spot-freed notifications are disabled")
	}

	sessions := session.NewService(appStore, catalog, policy, opts...)

	syncer := registry.NewSyncer(cfg.Registry, appStore, catalog)
	go syncer.Run(ctx)

	router := api.NewRouter(api.NewHandler(appStore, sessions, catalog, webpushOptions), cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
