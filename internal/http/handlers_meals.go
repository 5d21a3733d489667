package http

import (
	"net/http"

	"hucha/internal/core"
)

type recipePayload struct {
	Name        string   `json:"name"`
	Course      string   `json:"course"`
	Ingredients []string `json:"ingredients"`
	Notes       string   `json:"notes"`
}

type recipeResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Course      string   `json:"course"`
	Ingredients []string `json:"ingredients"`
	Notes       string   `json:"notes,omitempty"`
}

func toRecipeResponse(rec core.Recipe) recipeResponse {
	ingredients := rec.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return recipeResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Course:      string(rec.Course),
		Ingredients: ingredients,
		Notes:       rec.Notes,
	}
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload recipePayload
	if !decodeBody(w, r, &payload) {
		return
	}

	created, err := s.meals.CreateRecipe(r.Context(), core.Recipe{
		UserID:      user.ID,
		Name:        payload.Name,
		Course:      core.Course(payload.Course),
		Ingredients: payload.Ingredients,
		Notes:       payload.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeResponse(created))
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	rec, err := s.meals.GetRecipe(r.Context(), user.ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(rec))
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	var payload recipePayload
	if !decodeBody(w, r, &payload) {
		return
	}

	updated, err := s.meals.UpdateRecipe(r.Context(), core.Recipe{
		ID:          id,
		UserID:      user.ID,
		Name:        payload.Name,
		Course:      core.Course(payload.Course),
		Ingredients: payload.Ingredients,
		Notes:       payload.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(updated))
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	if err := s.meals.DeleteRecipe(r.Context(), user.ID, id); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	recipes, err := s.meals.ListRecipes(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]recipeResponse, 0, len(recipes))
	for _, rec := range recipes {
		out = append(out, toRecipeResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type menuEntryPayload struct {
	Weekday  int    `json:"weekday"`
	Course   string `json:"course"`
	RecipeID int64  `json:"recipe_id"`
}

type menuEntryResponse struct {
	WeekStart string `json:"week_start"`
	Weekday   int    `json:"weekday"`
	Course    string `json:"course"`
	RecipeID  int64  `json:"recipe_id"`
}

func (s *Server) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	weekStart := r.URL.Query().Get("week")

	entries, err := s.meals.GetWeekMenu(r.Context(), user.ID, weekStart)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]menuEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, menuEntryResponse{
			WeekStart: e.WeekStart,
			Weekday:   e.Weekday,
			Course:    string(e.Course),
			RecipeID:  e.RecipeID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReplaceMenu swaps the whole plan of one week for the posted entries.
func (s *Server) handleReplaceMenu(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	weekStart := r.URL.Query().Get("week")

	var payloads []menuEntryPayload
	if !decodeBody(w, r, &payloads) {
		return
	}

	entries := make([]core.MenuEntry, 0, len(payloads))
	for _, p := range payloads {
		entries = append(entries, core.MenuEntry{
			Weekday:  p.Weekday,
			Course:   core.Course(p.Course),
			RecipeID: p.RecipeID,
		})
	}

	if err := s.meals.ReplaceWeekMenu(r.Context(), user.ID, weekStart, entries); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(entries)})
}
