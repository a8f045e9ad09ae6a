package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httpadapter "veritrack/internal/adapters/http"
	pg "veritrack/internal/adapters/postgres"
	"veritrack/internal/config"
	"veritrack/internal/ports"
	connsvc "veritrack/internal/services/connections"
	"veritrack/internal/services/detection"
	roisvc "veritrack/internal/services/roi"
	"veritrack/internal/services/scoring"
	"veritrack/internal/workers/publishrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := pg.Connect(ctx, cfg.Database.URL, pg.Options{
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		logger.Fatal("db connect error", zap.Error(err))
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.EvidenceRepository = db
	var _ ports.ScoreRepository = db
	var _ ports.FlagRepository = db
	var _ ports.ConnectionRepository = db
	var _ ports.ROIRepository = db

	auth := httpadapter.NewTokenAuthorizer(cfg.AdminToken)
	scores := scoring.New(db, db, auth, cfg.Scoring, logger)
	roi := roisvc.New(db, db, auth, cfg.ROI, logger)
	pipeline := detection.NewPipeline(db, db, auth, cfg.Detection, logger)
	connections := connsvc.New(db, auth, logger)

	srv := httpadapter.New(scores, roi, pipeline, connections, logger)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	if cfg.Publisher.Enabled {
		go publishrunner.Run(ctx, scores, cfg.Publisher.Interval, logger)
		logger.Info("publish runner started", zap.Duration("interval", cfg.Publisher.Interval))
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errCh:
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" || env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
