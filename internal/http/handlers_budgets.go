package http

import (
	"encoding/json"
	"net/http"

	"hucha/internal/core"
)

type budgetPayload struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

type budgetResponse struct {
	Month    string `json:"month"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	month := r.URL.Query().Get("month")

	budgets, err := s.budgets.Get(r.Context(), user.ID, month)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budgetResponse{
			Month:    b.Month,
			Category: b.Category,
			Amount:   b.Amount.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReplaceBudgets swaps the whole budget set of one month for the
// posted one.
func (s *Server) handleReplaceBudgets(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	month := r.URL.Query().Get("month")

	var payloads []budgetPayload
	if !decodeBody(w, r, &payloads) {
		return
	}

	budgets := make([]core.Budget, 0, len(payloads))
	for _, p := range payloads {
		amount, err := core.ParseAmount(p.Amount.String())
		if err != nil {
			respondError(w, r, err)
			return
		}
		budgets = append(budgets, core.Budget{Category: p.Category, Amount: amount})
	}

	if err := s.budgets.Replace(r.Context(), user.ID, month, budgets); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(budgets)})
}
