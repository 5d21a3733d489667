package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"hucha/internal/core"
)

func scanRecipe(row interface{ Scan(...any) error }) (core.Recipe, error) {
	var rec core.Recipe
	var ingredients string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Course, &ingredients, &rec.Notes)
	if err != nil {
		return core.Recipe{}, err
	}
	if err := json.Unmarshal([]byte(ingredients), &rec.Ingredients); err != nil {
		return core.Recipe{}, fmt.Errorf("stored ingredients: %w", err)
	}
	return rec, nil
}

func ingredientsArg(r core.Recipe) (string, error) {
	if r.Ingredients == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r.Ingredients)
	if err != nil {
		return "", fmt.Errorf("marshal ingredients: %w", err)
	}
	return string(b), nil
}

func (r *Repository) CreateRecipe(ctx context.Context, rec core.Recipe) (core.Recipe, error) {
	ingredients, err := ingredientsArg(rec)
	if err != nil {
		return core.Recipe{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO recipes (user_id, name, course, ingredients, notes)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, user_id, name, course, ingredients, notes`,
		rec.UserID, rec.Name, rec.Course, ingredients, rec.Notes)
	created, err := scanRecipe(row)
	if err != nil {
		return core.Recipe{}, fmt.Errorf("create recipe: %w", err)
	}

	slog.InfoContext(ctx, "Recipe saved", "id", created.ID, "name", created.Name)
	return created, nil
}

func (r *Repository) GetRecipe(ctx context.Context, userID, id int64) (core.Recipe, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, course, ingredients, notes
		FROM recipes WHERE id = ? AND user_id = ?`, id, userID)
	rec, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Recipe{}, core.ErrNotFound
	}
	if err != nil {
		return core.Recipe{}, fmt.Errorf("get recipe %d: %w", id, err)
	}
	return rec, nil
}

func (r *Repository) UpdateRecipe(ctx context.Context, rec core.Recipe) (core.Recipe, error) {
	ingredients, err := ingredientsArg(rec)
	if err != nil {
		return core.Recipe{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE recipes SET name = ?, course = ?, ingredients = ?, notes = ?
		WHERE id = ? AND user_id = ?
		RETURNING id, user_id, name, course, ingredients, notes`,
		rec.Name, rec.Course, ingredients, rec.Notes, rec.ID, rec.UserID)
	updated, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Recipe{}, core.ErrNotFound
	}
	if err != nil {
		return core.Recipe{}, fmt.Errorf("update recipe %d: %w", rec.ID, err)
	}
	return updated, nil
}

func (r *Repository) DeleteRecipe(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recipes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recipe %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) ListRecipes(ctx context.Context, userID int64) ([]core.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, course, ingredients, notes
		FROM recipes WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []core.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

func (r *Repository) GetWeekMenu(ctx context.Context, userID int64, weekStart string) ([]core.MenuEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, week_start, weekday, course, recipe_id
		FROM menu_entries
		WHERE user_id = ? AND week_start = ?
		ORDER BY weekday, course`,
		userID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get week menu: %w", err)
	}
	defer rows.Close()

	var entries []core.MenuEntry
	for rows.Next() {
		var e core.MenuEntry
		if err := rows.Scan(&e.UserID, &e.WeekStart, &e.Weekday, &e.Course, &e.RecipeID); err != nil {
			return nil, fmt.Errorf("scan menu entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceWeekMenu rewrites a week's plan wholesale, like budgets.
func (r *Repository) ReplaceWeekMenu(ctx context.Context, userID int64, weekStart string, entries []core.MenuEntry) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM menu_entries WHERE user_id = ? AND week_start = ?`, userID, weekStart); err != nil {
			return fmt.Errorf("clear week menu: %w", err)
		}
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO menu_entries (user_id, week_start, weekday, course, recipe_id)
				VALUES (?, ?, ?, ?, ?)`,
				userID, weekStart, e.Weekday, e.Course, e.RecipeID); err != nil {
				return fmt.Errorf("insert menu entry day %d: %w", e.Weekday, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Week menu replaced",
		"user_id", userID, "week_start", weekStart, "entries", len(entries))
	return nil
}
