package services

import (
	"context"
	"fmt"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// BudgetService manages per-month category budgets, written wholesale.
type BudgetService struct {
	store storage.BudgetStore
}

func NewBudgetService(store storage.BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

func (s *BudgetService) Get(ctx context.Context, userID int64, month string) ([]core.Budget, error) {
	if err := core.ValidateYearMonth(month); err != nil {
		return nil, err
	}
	return s.store.GetBudgets(ctx, userID, month)
}

// Replace overwrites the month's budgets with the given set.
func (s *BudgetService) Replace(ctx context.Context, userID int64, month string, budgets []core.Budget) error {
	if err := core.ValidateYearMonth(month); err != nil {
		return err
	}
	seen := make(map[string]bool, len(budgets))
	for i := range budgets {
		budgets[i].UserID = userID
		budgets[i].Month = month
		if err := budgets[i].Validate(); err != nil {
			return err
		}
		if seen[budgets[i].Category] {
			return fmt.Errorf("duplicate budget category %q: %w", budgets[i].Category, core.ErrInvalidCategory)
		}
		seen[budgets[i].Category] = true
	}
	return s.store.ReplaceBudgets(ctx, userID, month, budgets)
}
