package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"campaign-inbox-go/internal/ai"
	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/database"
	"campaign-inbox-go/internal/handler"
	"campaign-inbox-go/internal/inbox"
	"campaign-inbox-go/internal/mail"
	"campaign-inbox-go/internal/metrics"
	"campaign-inbox-go/internal/repository"
	"campaign-inbox-go/internal/scheduler"
	"campaign-inbox-go/internal/server"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Campaign Inbox Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()
	repo := repository.New(dbConn)

	client := ai.NewClient(&cfg.AI)
	if client == nil {
		logrus.Warn("No AI API key configured, classification runs on the keyword heuristic only")
	}

	sender, err := mail.NewSender(cfg)
	if err != nil {
		return fmt.Errorf("failed to create outbound sender: %w", err)
	}
	logrus.Infof("Using %s for outbound mail", sender.Name())

	pipeline := inbox.NewPipeline(
		repo,
		ai.NewClassifier(client),
		ai.NewGreeter(client),
		ai.NewTranslator(client),
		sender,
		cfg.Notifications,
		m,
	)

	newFetcher, err := mail.NewFetcherFactory(cfg)
	if err != nil {
		return fmt.Errorf("failed to create mailbox fetchers: %w", err)
	}
	sched := scheduler.NewScheduler(&cfg.Scheduler, pipeline, repo, newFetcher, m)

	h := handler.NewHandlers(dbConn, sched, m)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
