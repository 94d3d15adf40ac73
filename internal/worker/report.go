package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/report"
)

// UserLister defines the interface for listing users that own lots.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// ReportGenerator defines the interface for generating reports.
type ReportGenerator interface {
	Generate(ctx context.Context, userID string, date time.Time) (report.PortfolioReport, error)
}

// AfterReportHook is called after each successful report generation.
type AfterReportHook interface {
	Export(ctx context.Context, rep report.PortfolioReport) error
}

// ReportWorker periodically generates the daily report of every user.
type ReportWorker struct {
	users     UserLister
	generator ReportGenerator
	interval  time.Duration
	hook      AfterReportHook // optional
	now       func() time.Time
}

// NewReportWorker creates a new ReportWorker with an optional post-generation hook.
func NewReportWorker(users UserLister, generator ReportGenerator, interval time.Duration, hook AfterReportHook) *ReportWorker {
	return &ReportWorker{
		users:     users,
		generator: generator,
		interval:  interval,
		hook:      hook,
		now:       time.Now,
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, rep report.PortfolioReport) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, rep); err != nil {
		slog.Error("ReportWorker: export hook failed", "user", rep.UserID, "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed", "user", rep.UserID)
	}
}

// generateAll generates today's report for every user. A failing user does not stop the others.
func (w *ReportWorker) generateAll(ctx context.Context) {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		slog.Error("ReportWorker: listing users failed", "error", err)
		return
	}

	date := domain.DateOnly(w.now())
	var failed int
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		rep, err := w.generator.Generate(ctx, user, date)
		if err != nil {
			failed++
			slog.Error("ReportWorker: generation failed", "user", user, "error", err)
			continue
		}
		w.runHook(ctx, rep)
	}
	slog.Info("ReportWorker: generation completed", "users", len(users), "failed", failed)
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting", "interval", w.interval)

	// Generate immediately on startup
	w.generateAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			w.generateAll(ctx)
		}
	}
}
