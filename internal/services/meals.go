package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// MealsService manages the recipe inventory and weekly menus.
type MealsService struct {
	recipes storage.RecipeStore
	menus   storage.MenuStore
	users   storage.UserStore
}

func NewMealsService(recipes storage.RecipeStore, menus storage.MenuStore, users storage.UserStore) *MealsService {
	return &MealsService{
		recipes: recipes,
		menus:   menus,
		users:   users,
	}
}

func (s *MealsService) CreateRecipe(ctx context.Context, r core.Recipe) (core.Recipe, error) {
	if err := r.Validate(); err != nil {
		return core.Recipe{}, err
	}
	return s.recipes.CreateRecipe(ctx, r)
}

func (s *MealsService) GetRecipe(ctx context.Context, userID, id int64) (core.Recipe, error) {
	return s.recipes.GetRecipe(ctx, userID, id)
}

func (s *MealsService) UpdateRecipe(ctx context.Context, r core.Recipe) (core.Recipe, error) {
	if err := r.Validate(); err != nil {
		return core.Recipe{}, err
	}
	return s.recipes.UpdateRecipe(ctx, r)
}

func (s *MealsService) DeleteRecipe(ctx context.Context, userID, id int64) error {
	return s.recipes.DeleteRecipe(ctx, userID, id)
}

func (s *MealsService) ListRecipes(ctx context.Context, userID int64) ([]core.Recipe, error) {
	return s.recipes.ListRecipes(ctx, userID)
}

func (s *MealsService) GetWeekMenu(ctx context.Context, userID int64, weekStart string) ([]core.MenuEntry, error) {
	return s.menus.GetWeekMenu(ctx, userID, weekStart)
}

// ReplaceWeekMenu overwrites a week's plan. Every entry must reference a
// recipe owned by the caller.
func (s *MealsService) ReplaceWeekMenu(ctx context.Context, userID int64, weekStart string, entries []core.MenuEntry) error {
	for i := range entries {
		entries[i].UserID = userID
		entries[i].WeekStart = weekStart
		if err := entries[i].Validate(); err != nil {
			return err
		}
		if _, err := s.recipes.GetRecipe(ctx, userID, entries[i].RecipeID); err != nil {
			return fmt.Errorf("menu entry day %d: recipe %d: %w", entries[i].Weekday, entries[i].RecipeID, err)
		}
	}
	return s.menus.ReplaceWeekMenu(ctx, userID, weekStart, entries)
}

type seedFile struct {
	Users []struct {
		Name    string `yaml:"name"`
		Token   string `yaml:"token"`
		Recipes []struct {
			Name        string   `yaml:"name"`
			Course      string   `yaml:"course"`
			Ingredients []string `yaml:"ingredients"`
			Notes       string   `yaml:"notes"`
		} `yaml:"recipes"`
	} `yaml:"users"`
}

// SeedFromFile loads users and their starter recipes from a YAML file.
// Existing users are kept as-is; their recipes are only seeded when the
// inventory is empty, so reruns are harmless.
func (s *MealsService) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, su := range seed.Users {
		user, err := s.users.GetUserByToken(ctx, su.Token)
		if errors.Is(err, core.ErrNotFound) {
			user, err = s.users.CreateUser(ctx, core.User{Name: su.Name, Token: su.Token})
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Name, err)
		}

		existing, err := s.recipes.ListRecipes(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list recipes for %s: %w", su.Name, err)
		}
		if len(existing) > 0 {
			continue
		}

		for _, sr := range su.Recipes {
			recipe := core.Recipe{
				UserID:      user.ID,
				Name:        sr.Name,
				Course:      core.Course(sr.Course),
				Ingredients: sr.Ingredients,
				Notes:       sr.Notes,
			}
			if err := recipe.Validate(); err != nil {
				return fmt.Errorf("seed recipe %q: %w", sr.Name, err)
			}
			if _, err := s.recipes.CreateRecipe(ctx, recipe); err != nil {
				return fmt.Errorf("seed recipe %q: %w", sr.Name, err)
			}
		}
		slog.InfoContext(ctx, "Seeded recipes", "user", su.Name, "count", len(su.Recipes))
	}

	return nil
}
