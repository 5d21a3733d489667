package services

import (
	"context"
	"fmt"
	"time"

	"hucha/internal/core"
	"hucha/internal/recurrence"
	"hucha/internal/storage"
)

// CalendarService manages recurring calendar events and renders month views.
type CalendarService struct {
	store storage.CalendarStore
}

func NewCalendarService(store storage.CalendarStore) *CalendarService {
	return &CalendarService{store: store}
}

func (s *CalendarService) Create(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	if err := validateEvent(ev); err != nil {
		return core.CalendarEvent{}, err
	}
	return s.store.CreateCalendarEvent(ctx, ev)
}

func (s *CalendarService) Get(ctx context.Context, userID, id int64) (core.CalendarEvent, error) {
	return s.store.GetCalendarEvent(ctx, userID, id)
}

func (s *CalendarService) Update(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	if err := validateEvent(ev); err != nil {
		return core.CalendarEvent{}, err
	}
	return s.store.UpdateCalendarEvent(ctx, ev)
}

// Deactivate soft-deletes the event; it disappears from views and worker
// runs but its row survives.
func (s *CalendarService) Deactivate(ctx context.Context, userID, id int64) error {
	return s.store.DeactivateCalendarEvent(ctx, userID, id)
}

func (s *CalendarService) List(ctx context.Context, userID int64, includeInactive bool) ([]core.CalendarEvent, error) {
	return s.store.ListCalendarEvents(ctx, userID, includeInactive)
}

// EventOccurrence is an event projected onto one month of the calendar.
type EventOccurrence struct {
	Event core.CalendarEvent
	Day   int
}

// MonthView returns the active events that fall in (year, month), month
// one-based. Days beyond the month's end are clamped to its last day.
func (s *CalendarService) MonthView(ctx context.Context, userID int64, year, month int) ([]EventOccurrence, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}

	events, err := s.store.ListCalendarEvents(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	lastDay := daysInMonth(year, month)
	var out []EventOccurrence
	for _, ev := range events {
		rule, err := recurrence.Parse(ev.Recurrence)
		if err != nil {
			// an unreadable rule never fires
			continue
		}
		if !rule.Applies(year, month-1) {
			continue
		}
		day := ev.Day
		if day > lastDay {
			day = lastDay
		}
		out = append(out, EventOccurrence{Event: ev, Day: day})
	}
	return out, nil
}

func validateEvent(ev core.CalendarEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if _, err := recurrence.Parse(ev.Recurrence); err != nil {
		return fmt.Errorf("invalid recurrence rule: %w", err)
	}
	return nil
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
