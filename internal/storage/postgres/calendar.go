package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hucha/internal/core"
)

const eventColumns = `id, user_id, name, day, amount_min, amount_max, category, recurrence, active, last_materialized`

func scanEvent(row pgx.Row) (core.CalendarEvent, error) {
	var ev core.CalendarEvent
	var amountMax *decimal.Decimal
	err := row.Scan(&ev.ID, &ev.UserID, &ev.Name, &ev.Day, &ev.AmountMin, &amountMax,
		&ev.Category, &ev.Recurrence, &ev.Active, &ev.LastMaterialized)
	if err != nil {
		return core.CalendarEvent{}, err
	}
	if amountMax != nil {
		ev.AmountMax = *amountMax
		ev.HasMax = true
	}
	return ev, nil
}

func maxArg(ev core.CalendarEvent) *decimal.Decimal {
	if ev.HasMax {
		return &ev.AmountMax
	}
	return nil
}

func (r *Repository) CreateCalendarEvent(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO calendar_events (user_id, name, day, amount_min, amount_max, category, recurrence, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING `+eventColumns,
		ev.UserID, ev.Name, ev.Day, ev.AmountMin, maxArg(ev), ev.Category, ev.Recurrence)
	created, err := scanEvent(row)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("create calendar event: %w", err)
	}

	slog.InfoContext(ctx, "Calendar event saved",
		"id", created.ID, "user_id", created.UserID, "name", created.Name)
	return created, nil
}

func (r *Repository) GetCalendarEvent(ctx context.Context, userID, id int64) (core.CalendarEvent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE id = $1 AND user_id = $2`, id, userID)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("get calendar event %d: %w", id, err)
	}
	return ev, nil
}

func (r *Repository) UpdateCalendarEvent(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE calendar_events
		SET name = $1, day = $2, amount_min = $3, amount_max = $4, category = $5, recurrence = $6
		WHERE id = $7 AND user_id = $8
		RETURNING `+eventColumns,
		ev.Name, ev.Day, ev.AmountMin, maxArg(ev), ev.Category, ev.Recurrence,
		ev.ID, ev.UserID)
	updated, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("update calendar event %d: %w", ev.ID, err)
	}
	return updated, nil
}

// DeactivateCalendarEvent is the soft delete: the row stays, active is cleared.
func (r *Repository) DeactivateCalendarEvent(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE calendar_events SET active = FALSE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate calendar event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) ListCalendarEvents(ctx context.Context, userID int64, includeInactive bool) ([]core.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE user_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY day, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *Repository) ListActiveCalendarEvents(ctx context.Context) ([]core.CalendarEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE active ORDER BY user_id, day, id`)
	if err != nil {
		return nil, fmt.Errorf("list active calendar events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *Repository) MarkEventMaterialized(ctx context.Context, id int64, yearMonth string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE calendar_events SET last_materialized = $1 WHERE id = $2`, yearMonth, id)
	if err != nil {
		return fmt.Errorf("mark event %d materialized: %w", id, err)
	}
	return nil
}

func collectEvents(rows pgx.Rows) ([]core.CalendarEvent, error) {
	var events []core.CalendarEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
