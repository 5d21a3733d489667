package http

import (
	"context"
	"fmt"
	"sync"

	"hucha/internal/core"
)

// memStore is an in-memory storage.Store used by the handler tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	ops     map[int64]core.Operation
	events  map[int64]core.CalendarEvent
	budgets map[string][]core.Budget
	recipes map[int64]core.Recipe
	menus   map[string][]core.MenuEntry
	users   map[string]core.User

	monthSummaryCalls int
}

func newMemStore() *memStore {
	return &memStore{
		ops:     make(map[int64]core.Operation),
		events:  make(map[int64]core.CalendarEvent),
		budgets: make(map[string][]core.Budget),
		recipes: make(map[int64]core.Recipe),
		menus:   make(map[string][]core.MenuEntry),
		users:   make(map[string]core.User),
	}
}

func (m *memStore) addUser(name, token string) core.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := core.User{ID: m.nextID, Name: name, Token: token}
	m.users[token] = u
	return u
}

func (m *memStore) CreateOperation(_ context.Context, op core.Operation) (core.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	op.ID = m.nextID
	m.ops[op.ID] = op
	return op, nil
}

func (m *memStore) CreateTransferPair(ctx context.Context, src, dst core.Operation) (core.Operation, core.Operation, error) {
	src, _ = m.CreateOperation(ctx, src)
	dst, _ = m.CreateOperation(ctx, dst)
	return src, dst, nil
}

func (m *memStore) GetOperation(_ context.Context, userID, id int64) (core.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.UserID != userID {
		return core.Operation{}, core.ErrNotFound
	}
	return op, nil
}

func (m *memStore) UpdateOperation(_ context.Context, op core.Operation) (core.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.ops[op.ID]
	if !ok || existing.UserID != op.UserID {
		return core.Operation{}, core.ErrNotFound
	}
	m.ops[op.ID] = op
	return op, nil
}

func (m *memStore) removePairLocked(op core.Operation) []core.Operation {
	removed := []core.Operation{op}
	delete(m.ops, op.ID)
	if op.TransferGroupID.Valid {
		for id, other := range m.ops {
			if other.TransferGroupID.Valid && other.TransferGroupID.UUID == op.TransferGroupID.UUID {
				removed = append(removed, other)
				delete(m.ops, id)
				break
			}
		}
	}
	return removed
}

func (m *memStore) DeleteOperation(_ context.Context, userID, id int64) ([]core.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.UserID != userID {
		return nil, core.ErrNotFound
	}
	return m.removePairLocked(op), nil
}

func (m *memStore) ReplaceOperation(_ context.Context, userID, id int64, replacements []core.Operation) ([]core.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.UserID != userID {
		return nil, core.ErrNotFound
	}
	m.removePairLocked(op)
	out := make([]core.Operation, 0, len(replacements))
	for _, rep := range replacements {
		m.nextID++
		rep.ID = m.nextID
		m.ops[rep.ID] = rep
		out = append(out, rep)
	}
	return out, nil
}

func (m *memStore) ListOperations(_ context.Context, userID int64, year, month int) ([]core.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Operation
	for _, op := range m.ops {
		if op.UserID == userID && op.Date.Year() == year && op.Date.Month() == month {
			out = append(out, op)
		}
	}
	return out, nil
}

func (m *memStore) MonthSummary(_ context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthSummaryCalls++
	sum := core.MonthSummary{UserID: userID, Year: year, Month: month}
	for _, op := range m.ops {
		if op.UserID != userID || op.Date.Year() != year || op.Date.Month() != month {
			continue
		}
		switch op.Type {
		case core.Income:
			sum.Income = sum.Income.Add(op.Amount)
		case core.Expense:
			sum.Expenses = sum.Expenses.Add(op.Amount)
		default:
			sum.Savings = sum.Savings.Add(op.Amount)
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expenses).Sub(sum.Savings)
	return sum, nil
}

func (m *memStore) YearSummary(_ context.Context, userID int64, year int) (core.YearSummary, error) {
	return core.YearSummary{UserID: userID, Year: year}, nil
}

func (m *memStore) CreateCalendarEvent(_ context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *memStore) GetCalendarEvent(_ context.Context, userID, id int64) (core.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.UserID != userID {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	return ev, nil
}

func (m *memStore) UpdateCalendarEvent(_ context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[ev.ID]
	if !ok || existing.UserID != ev.UserID {
		return core.CalendarEvent{}, core.ErrNotFound
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *memStore) DeactivateCalendarEvent(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.UserID != userID {
		return core.ErrNotFound
	}
	ev.Active = false
	m.events[id] = ev
	return nil
}

func (m *memStore) ListCalendarEvents(_ context.Context, userID int64, includeInactive bool) ([]core.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.CalendarEvent
	for _, ev := range m.events {
		if ev.UserID == userID && (includeInactive || ev.Active) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveCalendarEvents(_ context.Context) ([]core.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.CalendarEvent
	for _, ev := range m.events {
		if ev.Active {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memStore) MarkEventMaterialized(_ context.Context, id int64, yearMonth string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return core.ErrNotFound
	}
	ev.LastMaterialized = yearMonth
	m.events[id] = ev
	return nil
}

func budgetKey(userID int64, month string) string {
	return fmt.Sprintf("%d/%s", userID, month)
}

func (m *memStore) GetBudgets(_ context.Context, userID int64, month string) ([]core.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgets[budgetKey(userID, month)], nil
}

func (m *memStore) ReplaceBudgets(_ context.Context, userID int64, month string, budgets []core.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[budgetKey(userID, month)] = budgets
	return nil
}

func (m *memStore) CreateRecipe(_ context.Context, r core.Recipe) (core.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.recipes[r.ID] = r
	return r, nil
}

func (m *memStore) GetRecipe(_ context.Context, userID, id int64) (core.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok || r.UserID != userID {
		return core.Recipe{}, core.ErrNotFound
	}
	return r, nil
}

func (m *memStore) UpdateRecipe(_ context.Context, r core.Recipe) (core.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.recipes[r.ID]
	if !ok || existing.UserID != r.UserID {
		return core.Recipe{}, core.ErrNotFound
	}
	m.recipes[r.ID] = r
	return r, nil
}

func (m *memStore) DeleteRecipe(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok || r.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.recipes, id)
	return nil
}

func (m *memStore) ListRecipes(_ context.Context, userID int64) ([]core.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Recipe
	for _, r := range m.recipes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetWeekMenu(_ context.Context, userID int64, weekStart string) ([]core.MenuEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.menus[budgetKey(userID, weekStart)], nil
}

func (m *memStore) ReplaceWeekMenu(_ context.Context, userID int64, weekStart string, entries []core.MenuEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menus[budgetKey(userID, weekStart)] = entries
	return nil
}

func (m *memStore) GetUserByToken(_ context.Context, token string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[token]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateUser(_ context.Context, u core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.users[u.Token] = u
	return u, nil
}

func (m *memStore) ListUsers(_ context.Context) ([]core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }
