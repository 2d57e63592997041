package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/api"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/api/handler"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/config"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/disagreement"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/logging"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/storage"
	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		clog.FatalContextf(context.Background(), "Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logging.Setup(ctx, os.Stderr, cfg.Log.Level, cfg.Log.Format)
	log := clog.FromContext(ctx)

	var rules []disagreement.Rule
	if cfg.Report.RulesFile != "" {
		rules, err = disagreement.LoadRules(cfg.Report.RulesFile)
		if err != nil {
			clog.FatalContextf(ctx, "Failed to load disagreement rules: %v", err)
		}
	}

	var store handler.RunStore = report.NewDir(cfg.Report.OutputDir)
	if cfg.Database.Enabled {
		db, err := storage.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			clog.FatalContextf(ctx, "Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			clog.FatalContextf(ctx, "Failed to migrate database: %v", err)
		}
		store = storage.NewReportRepo(db)
		log.Info("Serving reports from Postgres")
	} else {
		log.Infof("Serving reports from %s", cfg.Report.OutputDir)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(store, report.NewBuilder(rules))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Infof("Server starting on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			clog.FatalContextf(ctx, "Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		clog.FatalContextf(ctx, "Server shutdown error: %v", err)
	}

	log.Info("Server stopped")
}
