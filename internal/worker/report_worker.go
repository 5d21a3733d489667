// Package worker turns operation change events into refreshed summary
// exports.
package worker

import (
	"context"
	"fmt"
	"time"

	"hucha/internal/amqp"
	"hucha/internal/core"
	"hucha/internal/export"
	applog "hucha/internal/log"
)

// SummarySource provides the recomputed summary for an affected month.
// Satisfied by the storage backends.
type SummarySource interface {
	MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error)
}

// UserLister resolves users for export labeling and full rescans.
type UserLister interface {
	ListUsers(ctx context.Context) ([]core.User, error)
}

// ReportWorker recomputes and exports the summary of every month an
// operation event touches, and periodically rescans the current month for
// all users to catch missed events.
type ReportWorker struct {
	summaries SummarySource
	users     UserLister
	exporter  export.SummaryExporter
	logger    *applog.Logger
}

func NewReportWorker(summaries SummarySource, users UserLister, exporter export.SummaryExporter, logger *applog.Logger) *ReportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ReportWorker{
		summaries: summaries,
		users:     users,
		exporter:  exporter,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleOperationEvent refreshes the export for the event's month. Returned
// errors make the consumer requeue the message.
func (w *ReportWorker) HandleOperationEvent(ctx context.Context, ev *amqp.OperationEvent) error {
	w.logger.InfoContext(ctx, "Processing operation event",
		"action", ev.Action,
		applog.FieldUserID, ev.UserID,
		applog.FieldYear, ev.Year,
		applog.FieldMonth, ev.Month)

	user, err := w.findUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("resolve user %d: %w", ev.UserID, err)
	}
	return w.exportMonth(ctx, user, ev.Year, ev.Month)
}

// RescanAll re-exports the current month for every user and returns how many
// exports ran.
func (w *ReportWorker) RescanAll(ctx context.Context, now time.Time) (int, error) {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	exported := 0
	for _, user := range users {
		if err := w.exportMonth(ctx, user, now.Year(), int(now.Month())); err != nil {
			w.logger.ErrorContext(ctx, "Rescan export failed",
				applog.FieldUserID, user.ID,
				applog.FieldError, err)
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Rescan completed",
		"users", len(users),
		"exported", exported)
	return exported, nil
}

func (w *ReportWorker) exportMonth(ctx context.Context, user core.User, year, month int) error {
	sum, err := w.summaries.MonthSummary(ctx, user.ID, year, month)
	if err != nil {
		return fmt.Errorf("month summary %d-%02d: %w", year, month, err)
	}
	if err := w.exporter.ExportMonthSummary(ctx, user, sum); err != nil {
		return fmt.Errorf("export summary %d-%02d: %w", year, month, err)
	}
	return nil
}

func (w *ReportWorker) findUser(ctx context.Context, userID int64) (core.User, error) {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}
