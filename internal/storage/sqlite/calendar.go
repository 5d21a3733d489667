package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"hucha/internal/core"
)

const eventColumns = `id, user_id, name, day, amount_min_cents, amount_max_cents, category, recurrence, active, last_materialized`

func scanEvent(row interface{ Scan(...any) error }) (core.CalendarEvent, error) {
	var (
		ev       core.CalendarEvent
		maxCents sql.NullInt64
		minCents int64
		active   int
	)
	err := row.Scan(&ev.ID, &ev.UserID, &ev.Name, &ev.Day, &minCents, &maxCents,
		&ev.Category, &ev.Recurrence, &active, &ev.LastMaterialized)
	if err != nil {
		return core.CalendarEvent{}, err
	}
	ev.AmountMin = fromCents(minCents)
	if maxCents.Valid {
		ev.AmountMax = fromCents(maxCents.Int64)
		ev.HasMax = true
	}
	ev.Active = active != 0
	return ev, nil
}

func maxArg(ev core.CalendarEvent) any {
	if ev.HasMax {
		return toCents(ev.AmountMax)
	}
	return nil
}

func (r *Repository) CreateCalendarEvent(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO calendar_events (user_id, name, day, amount_min_cents, amount_max_cents, category, recurrence, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		RETURNING `+eventColumns,
		ev.UserID, ev.Name, ev.Day, toCents(ev.AmountMin), maxArg(ev), ev.Category, ev.Recurrence)
	created, err := scanEvent(row)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("create calendar event: %w", err)
	}

	slog.InfoContext(ctx, "Calendar event saved",
		"id", created.ID, "user_id", created.UserID, "name", created.Name)
	return created, nil
}

func (r *Repository) GetCalendarEvent(ctx context.Context, userID, id int64) (core.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE id = ? AND user_id = ?`, id, userID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("get calendar event %d: %w", id, err)
	}
	return ev, nil
}

func (r *Repository) UpdateCalendarEvent(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE calendar_events
		SET name = ?, day = ?, amount_min_cents = ?, amount_max_cents = ?, category = ?, recurrence = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+eventColumns,
		ev.Name, ev.Day, toCents(ev.AmountMin), maxArg(ev), ev.Category, ev.Recurrence,
		ev.ID, ev.UserID)
	updated, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("update calendar event %d: %w", ev.ID, err)
	}
	return updated, nil
}

// DeactivateCalendarEvent is the soft delete: the row stays, Active is cleared.
func (r *Repository) DeactivateCalendarEvent(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calendar_events SET active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate calendar event %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) ListCalendarEvents(ctx context.Context, userID int64, includeInactive bool) ([]core.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE user_id = ?`
	if !includeInactive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY day, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *Repository) ListActiveCalendarEvents(ctx context.Context) ([]core.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE active = 1 ORDER BY user_id, day, id`)
	if err != nil {
		return nil, fmt.Errorf("list active calendar events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *Repository) MarkEventMaterialized(ctx context.Context, id int64, yearMonth string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE calendar_events SET last_materialized = ? WHERE id = ?`, yearMonth, id)
	if err != nil {
		return fmt.Errorf("mark event %d materialized: %w", id, err)
	}
	return nil
}

func collectEvents(rows *sql.Rows) ([]core.CalendarEvent, error) {
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
