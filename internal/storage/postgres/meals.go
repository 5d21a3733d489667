package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"hucha/internal/core"
)

func scanRecipe(row pgx.Row) (core.Recipe, error) {
	var rec core.Recipe
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Course, &rec.Ingredients, &rec.Notes)
	if err != nil {
		return core.Recipe{}, err
	}
	return rec, nil
}

func ingredientsArg(r core.Recipe) []string {
	if r.Ingredients == nil {
		return []string{}
	}
	return r.Ingredients
}

func (r *Repository) CreateRecipe(ctx context.Context, rec core.Recipe) (core.Recipe, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO recipes (user_id, name, course, ingredients, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, name, course, ingredients, notes`,
		rec.UserID, rec.Name, rec.Course, ingredientsArg(rec), rec.Notes)
	created, err := scanRecipe(row)
	if err != nil {
		return core.Recipe{}, fmt.Errorf("create recipe: %w", err)
	}

	slog.InfoContext(ctx, "Recipe saved", "id", created.ID, "name", created.Name)
	return created, nil
}

func (r *Repository) GetRecipe(ctx context.Context, userID, id int64) (core.Recipe, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, course, ingredients, notes
		FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	rec, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Recipe{}, core.ErrNotFound
	}
	if err != nil {
		return core.Recipe{}, fmt.Errorf("get recipe %d: %w", id, err)
	}
	return rec, nil
}

func (r *Repository) UpdateRecipe(ctx context.Context, rec core.Recipe) (core.Recipe, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE recipes SET name = $1, course = $2, ingredients = $3, notes = $4
		WHERE id = $5 AND user_id = $6
		RETURNING id, user_id, name, course, ingredients, notes`,
		rec.Name, rec.Course, ingredientsArg(rec), rec.Notes, rec.ID, rec.UserID)
	updated, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Recipe{}, core.ErrNotFound
	}
	if err != nil {
		return core.Recipe{}, fmt.Errorf("update recipe %d: %w", rec.ID, err)
	}
	return updated, nil
}

func (r *Repository) DeleteRecipe(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recipe %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) ListRecipes(ctx context.Context, userID int64) ([]core.Recipe, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, course, ingredients, notes
		FROM recipes WHERE user_id = $1 ORDER BY name`, userID)
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
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, week_start, weekday, course, recipe_id
		FROM menu_entries
		WHERE user_id = $1 AND week_start = $2
		ORDER BY weekday, course`,
		userID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get week menu: %w", err)
	}
	defer rows.Close()

	var entries []core.MenuEntry
	for rows.Next() {
		var e core.MenuEntry
		var start time.Time
		if err := rows.Scan(&e.UserID, &start, &e.Weekday, &e.Course, &e.RecipeID); err != nil {
			return nil, fmt.Errorf("scan menu entry: %w", err)
		}
		e.WeekStart = start.Format("2006-01-02")
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceWeekMenu rewrites a week's plan wholesale, like budgets.
func (r *Repository) ReplaceWeekMenu(ctx context.Context, userID int64, weekStart string, entries []core.MenuEntry) error {
	err := r.inTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx,
			`DELETE FROM menu_entries WHERE user_id = $1 AND week_start = $2`, userID, weekStart); err != nil {
			return fmt.Errorf("clear week menu: %w", err)
		}
		for _, e := range entries {
			if _, err := q.Exec(ctx, `
				INSERT INTO menu_entries (user_id, week_start, weekday, course, recipe_id)
				VALUES ($1, $2, $3, $4, $5)`,
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
