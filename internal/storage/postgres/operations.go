package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hucha/internal/core"
)

const operationColumns = `id, user_id, account_name, date, type, amount, description, category, transfer_group_id, created_at, updated_at`

func scanOperation(row pgx.Row) (core.Operation, error) {
	var op core.Operation
	var date time.Time
	err := row.Scan(&op.ID, &op.UserID, &op.AccountName, &date, &op.Type, &op.Amount,
		&op.Description, &op.Category, &op.TransferGroupID, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return core.Operation{}, err
	}
	op.Date = core.Date{Time: date}
	return op, nil
}

func insertOperation(ctx context.Context, q querier, op core.Operation) (core.Operation, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO operations (user_id, account_name, date, type, amount, description, category, transfer_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+operationColumns,
		op.UserID, op.AccountName, op.Date.Time, op.Type, op.Amount,
		op.Description, op.Category, op.TransferGroupID)
	return scanOperation(row)
}

func (r *Repository) CreateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	created, err := insertOperation(ctx, r.pool, op)
	if err != nil {
		return core.Operation{}, fmt.Errorf("create operation: %w", err)
	}

	slog.InfoContext(ctx, "Operation saved",
		"id", created.ID,
		"user_id", created.UserID,
		"type", created.Type,
		"account", created.AccountName,
		"amount", created.Amount.String())

	return created, nil
}

func (r *Repository) CreateTransferPair(ctx context.Context, src, dst core.Operation) (core.Operation, core.Operation, error) {
	var outSrc, outDst core.Operation
	err := r.inTx(ctx, func(tx querier) error {
		var err error
		if outSrc, err = insertOperation(ctx, tx, src); err != nil {
			return fmt.Errorf("insert source leg: %w", err)
		}
		if outDst, err = insertOperation(ctx, tx, dst); err != nil {
			return fmt.Errorf("insert destination leg: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Operation{}, core.Operation{}, fmt.Errorf("create transfer pair: %w", err)
	}

	slog.InfoContext(ctx, "Transfer pair saved",
		"source_id", outSrc.ID,
		"destination_id", outDst.ID,
		"group", outSrc.TransferGroupID.UUID.String(),
		"amount", outDst.Amount.String())

	return outSrc, outDst, nil
}

func getOperation(ctx context.Context, q querier, userID, id int64) (core.Operation, error) {
	row := q.QueryRow(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = $1 AND user_id = $2`, id, userID)
	op, err := scanOperation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Operation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Operation{}, fmt.Errorf("get operation %d: %w", id, err)
	}
	return op, nil
}

func (r *Repository) GetOperation(ctx context.Context, userID, id int64) (core.Operation, error) {
	return getOperation(ctx, r.pool, userID, id)
}

func (r *Repository) UpdateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE operations
		SET account_name = $1, date = $2, type = $3, amount = $4, description = $5, category = $6,
		    updated_at = now()
		WHERE id = $7 AND user_id = $8
		RETURNING `+operationColumns,
		op.AccountName, op.Date.Time, op.Type, op.Amount, op.Description, op.Category,
		op.ID, op.UserID)
	updated, err := scanOperation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Operation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Operation{}, fmt.Errorf("update operation %d: %w", op.ID, err)
	}
	return updated, nil
}

// findComplement locates the other leg of a transfer pair: by shared transfer
// group id when present, otherwise by the legacy value-matching heuristic
// (date, description, negated amount), ambiguous for identical twins.
func findComplement(ctx context.Context, q querier, op core.Operation) (core.Operation, bool, error) {
	var row pgx.Row
	if op.TransferGroupID.Valid {
		row = q.QueryRow(ctx, `
			SELECT `+operationColumns+` FROM operations
			WHERE user_id = $1 AND transfer_group_id = $2 AND id != $3
			LIMIT 1`,
			op.UserID, op.TransferGroupID, op.ID)
	} else {
		row = q.QueryRow(ctx, `
			SELECT `+operationColumns+` FROM operations
			WHERE user_id = $1 AND type = $2 AND date = $3 AND description = $4 AND amount = $5 AND id != $6
			LIMIT 1`,
			op.UserID, core.SavingsWithdrawal, op.Date.Time, op.Description,
			op.Amount.Neg(), op.ID)
	}
	comp, err := scanOperation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Operation{}, false, nil
	}
	if err != nil {
		return core.Operation{}, false, fmt.Errorf("find complement of %d: %w", op.ID, err)
	}
	return comp, true, nil
}

func deleteRow(ctx context.Context, q querier, userID, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM operations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete operation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func removePairFor(ctx context.Context, tx querier, op core.Operation) ([]core.Operation, error) {
	removed := []core.Operation{op}
	if op.Type == core.SavingsWithdrawal {
		comp, found, err := findComplement(ctx, tx, op)
		if err != nil {
			return nil, err
		}
		if found {
			if err := deleteRow(ctx, tx, comp.UserID, comp.ID); err != nil {
				return nil, err
			}
			removed = append(removed, comp)
		} else {
			slog.WarnContext(ctx, "Transfer leg has no complement",
				"id", op.ID, "description", op.Description)
		}
	}
	if err := deleteRow(ctx, tx, op.UserID, op.ID); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *Repository) DeleteOperation(ctx context.Context, userID, id int64) ([]core.Operation, error) {
	var removed []core.Operation
	err := r.inTx(ctx, func(tx querier) error {
		op, err := getOperation(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		removed, err = removePairFor(ctx, tx, op)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Operation deleted", "id", id, "rows_removed", len(removed))
	return removed, nil
}

func (r *Repository) ReplaceOperation(ctx context.Context, userID, id int64, replacements []core.Operation) ([]core.Operation, error) {
	var inserted []core.Operation
	err := r.inTx(ctx, func(tx querier) error {
		op, err := getOperation(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err = removePairFor(ctx, tx, op); err != nil {
			return err
		}
		for _, repl := range replacements {
			created, err := insertOperation(ctx, tx, repl)
			if err != nil {
				return fmt.Errorf("insert replacement: %w", err)
			}
			inserted = append(inserted, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Operation replaced",
		"old_id", id, "rows_inserted", len(inserted))
	return inserted, nil
}

func (r *Repository) ListOperations(ctx context.Context, userID int64, year, month int) ([]core.Operation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+operationColumns+` FROM operations
		WHERE user_id = $1 AND date_part('year', date) = $2 AND date_part('month', date) = $3
		ORDER BY date, id`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ops []core.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (r *Repository) MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	sum := core.MonthSummary{UserID: userID, Year: year, Month: month}

	rows, err := r.pool.Query(ctx, `
		SELECT type, COALESCE(SUM(amount), 0)
		FROM operations
		WHERE user_id = $1 AND date_part('year', date) = $2 AND date_part('month', date) = $3
		GROUP BY type`,
		userID, year, month)
	if err != nil {
		return sum, fmt.Errorf("month totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opType core.OperationType
		var v decimal.Decimal
		if err := rows.Scan(&opType, &v); err != nil {
			return sum, fmt.Errorf("scan month total: %w", err)
		}
		switch opType {
		case core.Income:
			sum.Income = v
		case core.Expense:
			sum.Expenses = v
		case core.Savings:
			sum.Savings = v
		}
	}
	if err := rows.Err(); err != nil {
		return sum, err
	}
	sum.Balance = sum.Income.Sub(sum.Expenses).Sub(sum.Savings)

	catRows, err := r.pool.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0) AS total
		FROM operations
		WHERE user_id = $1 AND date_part('year', date) = $2 AND date_part('month', date) = $3
		  AND type = $4 AND category != ''
		GROUP BY category
		ORDER BY total DESC`,
		userID, year, month, core.Expense)
	if err != nil {
		return sum, fmt.Errorf("month category sums: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var ca core.CategoryAmount
		if err := catRows.Scan(&ca.Name, &ca.Amount); err != nil {
			return sum, fmt.Errorf("scan category sum: %w", err)
		}
		sum.ByCategory = append(sum.ByCategory, ca)
	}
	return sum, catRows.Err()
}

func (r *Repository) YearSummary(ctx context.Context, userID int64, year int) (core.YearSummary, error) {
	out := core.YearSummary{UserID: userID, Year: year}

	rows, err := r.pool.Query(ctx, `
		SELECT date_part('month', date)::int AS m, type, COALESCE(SUM(amount), 0)
		FROM operations
		WHERE user_id = $1 AND date_part('year', date) = $2
		GROUP BY m, type
		ORDER BY m`,
		userID, year)
	if err != nil {
		return out, fmt.Errorf("year totals: %w", err)
	}
	defer rows.Close()

	byMonth := make(map[int]*core.MonthSummary)
	for rows.Next() {
		var m int
		var opType core.OperationType
		var v decimal.Decimal
		if err := rows.Scan(&m, &opType, &v); err != nil {
			return out, fmt.Errorf("scan year total: %w", err)
		}
		ms, ok := byMonth[m]
		if !ok {
			ms = &core.MonthSummary{UserID: userID, Year: year, Month: m}
			byMonth[m] = ms
		}
		switch opType {
		case core.Income:
			ms.Income = v
		case core.Expense:
			ms.Expenses = v
		case core.Savings:
			ms.Savings = v
		}
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	for m := 1; m <= 12; m++ {
		ms, ok := byMonth[m]
		if !ok {
			continue
		}
		ms.Balance = ms.Income.Sub(ms.Expenses).Sub(ms.Savings)
		out.Income = out.Income.Add(ms.Income)
		out.Expenses = out.Expenses.Add(ms.Expenses)
		out.Savings = out.Savings.Add(ms.Savings)
		out.Months = append(out.Months, *ms)
	}
	out.Balance = out.Income.Sub(out.Expenses).Sub(out.Savings)
	return out, nil
}
