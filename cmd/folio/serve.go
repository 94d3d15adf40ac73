package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/api"
	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/worker"
)

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run migrations, background workers and the HTTP API",
		Action: func(c *cli.Context) error {
			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// Optional export hook
	var hook worker.AfterReportHook
	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
		writer, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			slog.Error("Google Sheets export disabled", "error", err)
		} else {
			hook = export.NewService(writer)
		}
	}

	// Start workers
	fxWorker := worker.NewFXWorker(svc.currency, cfg.FXWorkerInterval)
	go fxWorker.Run(ctx)

	reportWorker := worker.NewReportWorker(svc.lots, svc.reports, cfg.ReportWorkerInterval, hook)
	go reportWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, write endpoints are unprotected")
	}

	// Start HTTP server
	handler := api.NewHandler(svc.valuation, svc.portfolios, svc.reports, svc.lots, cfg.HistoryYears)
	srv := api.NewServer(cfg.HTTPPort, handler, cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
