package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hucha/internal/core"
)

const operationColumns = `id, user_id, account_name, date, type, amount_cents, description, category, transfer_group_id, created_at, updated_at`

func scanOperation(row interface{ Scan(...any) error }) (core.Operation, error) {
	var (
		op      core.Operation
		dateStr string
		cents   int64
		group   sql.NullString
		created string
		updated string
	)
	err := row.Scan(&op.ID, &op.UserID, &op.AccountName, &dateStr, &op.Type, &cents,
		&op.Description, &op.Category, &group, &created, &updated)
	if err != nil {
		return core.Operation{}, err
	}
	op.Amount = fromCents(cents)
	if op.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Operation{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	if group.Valid {
		id, err := uuid.Parse(group.String)
		if err != nil {
			return core.Operation{}, fmt.Errorf("stored transfer group %q: %w", group.String, err)
		}
		op.TransferGroupID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
		op.CreatedAt = t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", updated); err == nil {
		op.UpdatedAt = t
	}
	return op, nil
}

func groupArg(op core.Operation) any {
	if op.TransferGroupID.Valid {
		return op.TransferGroupID.UUID.String()
	}
	return nil
}

func insertOperation(ctx context.Context, q dbtx, op core.Operation) (core.Operation, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO operations (user_id, account_name, date, type, amount_cents, description, category, transfer_group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+operationColumns,
		op.UserID, op.AccountName, op.Date.String(), op.Type, toCents(op.Amount),
		op.Description, op.Category, groupArg(op))
	return scanOperation(row)
}

func (r *Repository) CreateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	created, err := insertOperation(ctx, r.db, op)
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
	err := r.inTx(ctx, func(tx *sql.Tx) error {
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

func getOperation(ctx context.Context, q dbtx, userID, id int64) (core.Operation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = ? AND user_id = ?`, id, userID)
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Operation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Operation{}, fmt.Errorf("get operation %d: %w", id, err)
	}
	return op, nil
}

func (r *Repository) GetOperation(ctx context.Context, userID, id int64) (core.Operation, error) {
	return getOperation(ctx, r.db, userID, id)
}

func (r *Repository) UpdateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE operations
		SET account_name = ?, date = ?, type = ?, amount_cents = ?, description = ?, category = ?,
		    updated_at = datetime('now')
		WHERE id = ? AND user_id = ?
		RETURNING `+operationColumns,
		op.AccountName, op.Date.String(), op.Type, toCents(op.Amount), op.Description, op.Category,
		op.ID, op.UserID)
	updated, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Operation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Operation{}, fmt.Errorf("update operation %d: %w", op.ID, err)
	}
	return updated, nil
}

// findComplement locates the other leg of a transfer pair. Rows written by
// this backend share a transfer group id; legacy rows fall back to matching
// business fields (date, description, negated amount), which is ambiguous for
// identical twin transfers and may pick either candidate.
func findComplement(ctx context.Context, q dbtx, op core.Operation) (core.Operation, bool, error) {
	var row *sql.Row
	if op.TransferGroupID.Valid {
		row = q.QueryRowContext(ctx, `
			SELECT `+operationColumns+` FROM operations
			WHERE user_id = ? AND transfer_group_id = ? AND id != ?
			LIMIT 1`,
			op.UserID, op.TransferGroupID.UUID.String(), op.ID)
	} else {
		row = q.QueryRowContext(ctx, `
			SELECT `+operationColumns+` FROM operations
			WHERE user_id = ? AND type = ? AND date = ? AND description = ? AND amount_cents = ? AND id != ?
			LIMIT 1`,
			op.UserID, core.SavingsWithdrawal, op.Date.String(), op.Description,
			-toCents(op.Amount), op.ID)
	}
	comp, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Operation{}, false, nil
	}
	if err != nil {
		return core.Operation{}, false, fmt.Errorf("find complement of %d: %w", op.ID, err)
	}
	return comp, true, nil
}

func deleteRow(ctx context.Context, q dbtx, userID, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM operations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete operation %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// removePairFor deletes op and, when it is a transfer leg, its complement.
// Returns the removed rows.
func removePairFor(ctx context.Context, tx *sql.Tx, op core.Operation) ([]core.Operation, error) {
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
	err := r.inTx(ctx, func(tx *sql.Tx) error {
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
	err := r.inTx(ctx, func(tx *sql.Tx) error {
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+operationColumns+` FROM operations
		WHERE user_id = ? AND substr(date, 1, 7) = ?
		ORDER BY date, id`,
		userID, monthKey(year, month))
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

	rows, err := r.db.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(amount_cents), 0)
		FROM operations
		WHERE user_id = ? AND substr(date, 1, 7) = ?
		GROUP BY type`,
		userID, monthKey(year, month))
	if err != nil {
		return sum, fmt.Errorf("month totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opType core.OperationType
		var cents int64
		if err := rows.Scan(&opType, &cents); err != nil {
			return sum, fmt.Errorf("scan month total: %w", err)
		}
		switch opType {
		case core.Income:
			sum.Income = fromCents(cents)
		case core.Expense:
			sum.Expenses = fromCents(cents)
		case core.Savings:
			sum.Savings = fromCents(cents)
		}
	}
	if err := rows.Err(); err != nil {
		return sum, err
	}
	sum.Balance = sum.Income.Sub(sum.Expenses).Sub(sum.Savings)

	catRows, err := r.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount_cents), 0) AS total
		FROM operations
		WHERE user_id = ? AND substr(date, 1, 7) = ? AND type = ? AND category != ''
		GROUP BY category
		ORDER BY total DESC`,
		userID, monthKey(year, month), core.Expense)
	if err != nil {
		return sum, fmt.Errorf("month category sums: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var name string
		var cents int64
		if err := catRows.Scan(&name, &cents); err != nil {
			return sum, fmt.Errorf("scan category sum: %w", err)
		}
		sum.ByCategory = append(sum.ByCategory, core.CategoryAmount{Name: name, Amount: fromCents(cents)})
	}
	return sum, catRows.Err()
}

func (r *Repository) YearSummary(ctx context.Context, userID int64, year int) (core.YearSummary, error) {
	out := core.YearSummary{UserID: userID, Year: year}

	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(date, 6, 2), type, COALESCE(SUM(amount_cents), 0)
		FROM operations
		WHERE user_id = ? AND substr(date, 1, 4) = ?
		GROUP BY substr(date, 6, 2), type
		ORDER BY substr(date, 6, 2)`,
		userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return out, fmt.Errorf("year totals: %w", err)
	}
	defer rows.Close()

	byMonth := make(map[int]*core.MonthSummary)
	for rows.Next() {
		var monthStr string
		var opType core.OperationType
		var cents int64
		if err := rows.Scan(&monthStr, &opType, &cents); err != nil {
			return out, fmt.Errorf("scan year total: %w", err)
		}
		var m int
		fmt.Sscanf(monthStr, "%d", &m)
		ms, ok := byMonth[m]
		if !ok {
			ms = &core.MonthSummary{UserID: userID, Year: year, Month: m}
			byMonth[m] = ms
		}
		switch opType {
		case core.Income:
			ms.Income = fromCents(cents)
		case core.Expense:
			ms.Expenses = fromCents(cents)
		case core.Savings:
			ms.Savings = fromCents(cents)
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
