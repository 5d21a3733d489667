package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"hucha/internal/core"
)

func (r *Repository) GetBudgets(ctx context.Context, userID int64, month string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, month, category, amount_cents
		FROM budgets
		WHERE user_id = ? AND month = ?
		ORDER BY category`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var cents int64
		if err := rows.Scan(&b.UserID, &b.Month, &b.Category, &cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Amount = fromCents(cents)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ReplaceBudgets rewrites a month wholesale: delete then reinsert, one
// transaction.
func (r *Repository) ReplaceBudgets(ctx context.Context, userID int64, month string, budgets []core.Budget) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM budgets WHERE user_id = ? AND month = ?`, userID, month); err != nil {
			return fmt.Errorf("clear month budgets: %w", err)
		}
		for _, b := range budgets {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO budgets (user_id, month, category, amount_cents)
				VALUES (?, ?, ?, ?)`,
				userID, month, b.Category, toCents(b.Amount)); err != nil {
				return fmt.Errorf("insert budget %s/%s: %w", month, b.Category, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budgets replaced",
		"user_id", userID, "month", month, "categories", len(budgets))
	return nil
}
