package postgres

import (
	"context"
	"fmt"

	"hucha/internal/core"
)

func (r *Repository) GetBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, month, category, amount
		FROM budgets
		WHERE user_id = $1 AND month = $2
		ORDER BY category`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("get budgets for %s: %w", month, err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.UserID, &b.Month, &b.Category, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ReplaceBudgets rewrites the month wholesale inside one transaction.
func (r *Repository) ReplaceBudgets(ctx context.Context, userID int64, month string, budgets []core.Budget) error {
	return r.inTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx,
			`DELETE FROM budgets WHERE user_id = $1 AND month = $2`, userID, month); err != nil {
			return fmt.Errorf("clear budgets for %s: %w", month, err)
		}
		for _, b := range budgets {
			_, err := q.Exec(ctx, `
				INSERT INTO budgets (user_id, month, category, amount)
				VALUES ($1, $2, $3, $4)`,
				userID, month, b.Category, b.Amount)
			if err != nil {
				return fmt.Errorf("insert budget %s: %w", b.Category, err)
			}
		}
		return nil
	})
}
