package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/minebank/bank-service/internal/config"
	"github.com/minebank/bank-service/internal/handler"
	"github.com/minebank/bank-service/internal/integrations/cbr"
	"github.com/minebank/bank-service/internal/middleware"
	"github.com/minebank/bank-service/internal/repository"
	"github.com/minebank/bank-service/internal/service"
	"github.com/minebank/bank-service/internal/utils/email"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize store
	var store repository.Store
	switch cfg.StoreKind {
	case "memory":
		store = repository.NewMemoryStore()
	default:
		store, err = repository.NewPostgresStore(cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
	}
	defer store.Close()

	// Initialize layers
	svc := service.NewService(store, logger, cfg)
	if err := svc.EnsureAdmin(context.Background()); err != nil {
		logger.Fatalf("Failed to create admin user: %v", err)
	}
	if cfg.SMTPHost != "" && cfg.AdminEmail != "" {
		svc.SetNotifier(email.NewSender(cfg, logger))
	}
	cbrClient := cbr.NewClient(cfg, logger)
	h := handler.NewHandler(svc, cbrClient)

	// Setup router
	r := h.Routes(cfg)
	r.Use(middleware.RequestLogger(logger))

	// Optional periodic price snapshots
	if cfg.PriceSnapshotCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.PriceSnapshotCron, func() {
			if err := svc.RecordPriceSnapshot(context.Background()); err != nil {
				logger.Errorf("Price snapshot failed: %v", err)
			}
		})
		if err != nil {
			logger.Fatalf("Invalid PRICE_SNAPSHOT_CRON: %v", err)
		}
		c.Start()
		defer c.Stop()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
