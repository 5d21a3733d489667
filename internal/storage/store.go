// Package storage defines the persistence ports implemented by the sqlite
// and postgres backends.
package storage

import (
	"context"

	"hucha/internal/core"
)

type (
	// OperationStore persists ledger rows. The multi-row methods
	// (CreateTransferPair, DeleteOperation on a transfer leg,
	// ReplaceOperation) run inside a single database transaction; a failure
	// leaves no partial write behind.
	OperationStore interface {
		CreateOperation(ctx context.Context, op core.Operation) (core.Operation, error)

		// CreateTransferPair inserts both legs of a savings transfer
		// atomically and returns them (source first).
		CreateTransferPair(ctx context.Context, src, dst core.Operation) (core.Operation, core.Operation, error)

		// GetOperation returns core.ErrNotFound when the row is absent or
		// owned by another user.
		GetOperation(ctx context.Context, userID, id int64) (core.Operation, error)

		// UpdateOperation performs a plain field update of a single row.
		UpdateOperation(ctx context.Context, op core.Operation) (core.Operation, error)

		// DeleteOperation removes the row; when it is a savings withdrawal
		// leg its complement is located and removed in the same transaction.
		// Returns the removed rows.
		DeleteOperation(ctx context.Context, userID, id int64) ([]core.Operation, error)

		// ReplaceOperation atomically removes the row (and, when it is a
		// transfer leg, its complement) and inserts the replacement rows.
		// Returns the inserted rows.
		ReplaceOperation(ctx context.Context, userID, id int64, replacements []core.Operation) ([]core.Operation, error)

		ListOperations(ctx context.Context, userID int64, year, month int) ([]core.Operation, error)

		MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error)
		YearSummary(ctx context.Context, userID int64, year int) (core.YearSummary, error)
	}

	// CalendarStore persists recurring calendar events. Events are never
	// hard-deleted, only deactivated.
	CalendarStore interface {
		CreateCalendarEvent(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error)
		GetCalendarEvent(ctx context.Context, userID, id int64) (core.CalendarEvent, error)
		UpdateCalendarEvent(ctx context.Context, ev core.CalendarEvent) (core.CalendarEvent, error)
		DeactivateCalendarEvent(ctx context.Context, userID, id int64) error
		ListCalendarEvents(ctx context.Context, userID int64, includeInactive bool) ([]core.CalendarEvent, error)

		// ListActiveCalendarEvents returns active events across all users,
		// for the recurring worker.
		ListActiveCalendarEvents(ctx context.Context) ([]core.CalendarEvent, error)
		MarkEventMaterialized(ctx context.Context, id int64, yearMonth string) error
	}

	// BudgetStore persists per-month category budgets. A month is always
	// written wholesale: ReplaceBudgets deletes the month's rows and inserts
	// the new set in one transaction.
	BudgetStore interface {
		GetBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error)
		ReplaceBudgets(ctx context.Context, userID int64, month string, budgets []core.Budget) error
	}

	// RecipeStore persists the reusable meal inventory.
	RecipeStore interface {
		CreateRecipe(ctx context.Context, r core.Recipe) (core.Recipe, error)
		GetRecipe(ctx context.Context, userID, id int64) (core.Recipe, error)
		UpdateRecipe(ctx context.Context, r core.Recipe) (core.Recipe, error)
		DeleteRecipe(ctx context.Context, userID, id int64) error
		ListRecipes(ctx context.Context, userID int64) ([]core.Recipe, error)
	}

	// MenuStore persists weekly meal plans, replaced wholesale per week like
	// budgets.
	MenuStore interface {
		GetWeekMenu(ctx context.Context, userID int64, weekStart string) ([]core.MenuEntry, error)
		ReplaceWeekMenu(ctx context.Context, userID int64, weekStart string, entries []core.MenuEntry) error
	}

	UserStore interface {
		GetUserByToken(ctx context.Context, token string) (core.User, error)
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		OperationStore
		CalendarStore
		BudgetStore
		RecipeStore
		MenuStore
		UserStore
		Close() error
	}
)
