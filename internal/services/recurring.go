package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hucha/internal/core"
	"hucha/internal/recurrence"
	"hucha/internal/storage"
)

// recurringAccount is the account recurring charges are booked against.
const recurringAccount = "Principal"

// RecurringProcessor turns due calendar events into expense operations.
type RecurringProcessor struct {
	calendar   storage.CalendarStore
	operations *OperationService
}

func NewRecurringProcessor(calendar storage.CalendarStore, operations *OperationService) *RecurringProcessor {
	return &RecurringProcessor{
		calendar:   calendar,
		operations: operations,
	}
}

// ProcessDueEvents materializes every active event whose rule fires in the
// current month, whose day (clamped to the month's length) has been reached,
// and which has not been materialized this month yet. Returns how many
// operations were created.
func (p *RecurringProcessor) ProcessDueEvents(ctx context.Context, now time.Time) (int, error) {
	if p.calendar == nil || p.operations == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	events, err := p.calendar.ListActiveCalendarEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active calendar events: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring events",
		"total_active", len(events),
		"processing_date", now.Format("2006-01-02"))

	yearMonth := now.Format("2006-01")
	processed := 0

	for _, ev := range events {
		due, err := isDue(ev, now, yearMonth)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to evaluate recurrence rule",
				"event_id", ev.ID,
				"name", ev.Name,
				"error", err)
			continue
		}
		if !due {
			continue
		}

		op := core.Operation{
			UserID:      ev.UserID,
			AccountName: recurringAccount,
			Date:        core.Date{Time: now},
			Type:        core.Expense,
			Amount:      ev.AmountMin,
			Description: ev.Name,
			Category:    ev.Category,
		}

		if _, err := p.operations.Create(ctx, op); err != nil {
			slog.ErrorContext(ctx, "Failed to create operation from calendar event",
				"event_id", ev.ID,
				"name", ev.Name,
				"error", err)
			continue
		}

		if err := p.calendar.MarkEventMaterialized(ctx, ev.ID, yearMonth); err != nil {
			slog.ErrorContext(ctx, "Failed to stamp materialization month",
				"event_id", ev.ID,
				"error", err)
			// operation exists, the stamp failure risks a duplicate next run
		}

		processed++
		slog.InfoContext(ctx, "Created operation from calendar event",
			"event_id", ev.ID,
			"name", ev.Name,
			"amount", ev.AmountMin.String(),
			"month", yearMonth)
	}

	slog.InfoContext(ctx, "Recurring event processing complete",
		"processed", processed,
		"total_checked", len(events))

	return processed, nil
}

// isDue reports whether the event fires this month and its day has arrived.
func isDue(ev core.CalendarEvent, now time.Time, yearMonth string) (bool, error) {
	if ev.LastMaterialized == yearMonth {
		return false, nil
	}

	rule, err := recurrence.Parse(ev.Recurrence)
	if err != nil {
		return false, err
	}
	if !rule.Applies(now.Year(), int(now.Month())-1) {
		return false, nil
	}

	day := ev.Day
	if last := daysInMonth(now.Year(), int(now.Month())); day > last {
		day = last
	}
	return now.Day() >= day, nil
}
