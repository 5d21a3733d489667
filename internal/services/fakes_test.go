package services

import (
	"context"
	"fmt"

	"hucha/internal/core"
)

// fakeOperationStore keeps rows in memory and mimics the backends' pairing
// behavior for delete/replace.
type fakeOperationStore struct {
	nextID int64
	ops    map[int64]core.Operation
}

func newFakeOperationStore() *fakeOperationStore {
	return &fakeOperationStore{nextID: 1, ops: make(map[int64]core.Operation)}
}

func (f *fakeOperationStore) insert(op core.Operation) core.Operation {
	op.ID = f.nextID
	f.nextID++
	f.ops[op.ID] = op
	return op
}

func (f *fakeOperationStore) CreateOperation(_ context.Context, op core.Operation) (core.Operation, error) {
	return f.insert(op), nil
}

func (f *fakeOperationStore) CreateTransferPair(_ context.Context, src, dst core.Operation) (core.Operation, core.Operation, error) {
	return f.insert(src), f.insert(dst), nil
}

func (f *fakeOperationStore) GetOperation(_ context.Context, userID, id int64) (core.Operation, error) {
	op, ok := f.ops[id]
	if !ok || op.UserID != userID {
		return core.Operation{}, core.ErrNotFound
	}
	return op, nil
}

func (f *fakeOperationStore) UpdateOperation(_ context.Context, op core.Operation) (core.Operation, error) {
	if _, ok := f.ops[op.ID]; !ok {
		return core.Operation{}, core.ErrNotFound
	}
	f.ops[op.ID] = op
	return op, nil
}

func (f *fakeOperationStore) complementOf(op core.Operation) (core.Operation, bool) {
	for _, other := range f.ops {
		if other.ID == op.ID || other.UserID != op.UserID {
			continue
		}
		if op.TransferGroupID.Valid {
			if other.TransferGroupID.Valid && other.TransferGroupID.UUID == op.TransferGroupID.UUID {
				return other, true
			}
			continue
		}
		if other.Type == core.SavingsWithdrawal &&
			other.Description == op.Description &&
			other.Amount.Equal(op.Amount.Neg()) {
			return other, true
		}
	}
	return core.Operation{}, false
}

func (f *fakeOperationStore) removePair(op core.Operation) []core.Operation {
	removed := []core.Operation{op}
	if op.Type == core.SavingsWithdrawal {
		if comp, ok := f.complementOf(op); ok {
			delete(f.ops, comp.ID)
			removed = append(removed, comp)
		}
	}
	delete(f.ops, op.ID)
	return removed
}

func (f *fakeOperationStore) DeleteOperation(ctx context.Context, userID, id int64) ([]core.Operation, error) {
	op, err := f.GetOperation(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return f.removePair(op), nil
}

func (f *fakeOperationStore) ReplaceOperation(ctx context.Context, userID, id int64, replacements []core.Operation) ([]core.Operation, error) {
	op, err := f.GetOperation(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	f.removePair(op)
	var inserted []core.Operation
	for _, repl := range replacements {
		inserted = append(inserted, f.insert(repl))
	}
	return inserted, nil
}

func (f *fakeOperationStore) ListOperations(_ context.Context, userID int64, year, month int) ([]core.Operation, error) {
	var out []core.Operation
	for _, op := range f.ops {
		if op.UserID == userID && op.Date.Year() == year && int(op.Date.Month()) == month {
			out = append(out, op)
		}
	}
	return out, nil
}

func (f *fakeOperationStore) MonthSummary(_ context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	return core.MonthSummary{UserID: userID, Year: year, Month: month}, nil
}

func (f *fakeOperationStore) YearSummary(_ context.Context, userID int64, year int) (core.YearSummary, error) {
	return core.YearSummary{UserID: userID, Year: year}, nil
}

type publishedEvent struct {
	action      string
	userID      int64
	year, month int
}

type fakePublisher struct {
	events []publishedEvent
	fail   bool
}

func (f *fakePublisher) PublishOperationEvent(_ context.Context, action string, userID int64, year, month int) error {
	if f.fail {
		return fmt.Errorf("broker unavailable")
	}
	f.events = append(f.events, publishedEvent{action, userID, year, month})
	return nil
}

// fakeCalendarStore serves a fixed event list and records stamps.
type fakeCalendarStore struct {
	nextID  int64
	events  map[int64]core.CalendarEvent
	stamped map[int64]string
}

func newFakeCalendarStore() *fakeCalendarStore {
	return &fakeCalendarStore{
		nextID:  1,
		events:  make(map[int64]core.CalendarEvent),
		stamped: make(map[int64]string),
	}
}

func (f *fakeCalendarStore) add(ev core.CalendarEvent) core.CalendarEvent {
	ev.ID = f.nextID
	f.nextID++
	f.events[ev.ID] = ev
	return ev
}

func (f *fakeCalendarStore) CreateCalendarEvent(_ context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	ev.Active = true
	return f.add(ev), nil
}

func (f *fakeCalendarStore) GetCalendarEvent(_ context.Context, userID, id int64) (core.CalendarEvent, error) {
	ev, ok := f.events[id]
	if !ok || ev.UserID != userID {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	return ev, nil
}

func (f *fakeCalendarStore) UpdateCalendarEvent(_ context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	if _, ok := f.events[ev.ID]; !ok {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeCalendarStore) DeactivateCalendarEvent(_ context.Context, userID, id int64) error {
	ev, ok := f.events[id]
	if !ok || ev.UserID != userID {
		return core.ErrNotFound
	}
	ev.Active = false
	f.events[id] = ev
	return nil
}

func (f *fakeCalendarStore) ListCalendarEvents(_ context.Context, userID int64, includeInactive bool) ([]core.CalendarEvent, error) {
	var out []core.CalendarEvent
	for _, ev := range f.events {
		if ev.UserID != userID {
			continue
		}
		if !ev.Active && !includeInactive {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeCalendarStore) ListActiveCalendarEvents(_ context.Context) ([]core.CalendarEvent, error) {
	var out []core.CalendarEvent
	for _, ev := range f.events {
		if ev.Active {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendarStore) MarkEventMaterialized(_ context.Context, id int64, yearMonth string) error {
	ev, ok := f.events[id]
	if !ok {
		return core.ErrNotFound
	}
	ev.LastMaterialized = yearMonth
	f.events[id] = ev
	f.stamped[id] = yearMonth
	return nil
}
