package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hucha/internal/core"
)

type operationPayload struct {
	AccountName string      `json:"account_name"`
	Date        string      `json:"date"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
}

func (p operationPayload) toOperation(userID int64) (core.Operation, error) {
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Operation{}, err
	}
	amount, err := core.ParseAmount(p.Amount.String())
	if err != nil {
		return core.Operation{}, err
	}
	return core.Operation{
		UserID:      userID,
		AccountName: p.AccountName,
		Date:        date,
		Type:        core.OperationType(p.Type),
		Amount:      amount,
		Description: p.Description,
		Category:    p.Category,
	}, nil
}

type operationResponse struct {
	ID              int64     `json:"id"`
	AccountName     string    `json:"account_name"`
	Date            core.Date `json:"date"`
	Type            string    `json:"type"`
	Amount          string    `json:"amount"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	TransferGroupID string    `json:"transfer_group_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toOperationResponse(op core.Operation) operationResponse {
	resp := operationResponse{
		ID:          op.ID,
		AccountName: op.AccountName,
		Date:        op.Date,
		Type:        string(op.Type),
		Amount:      op.Amount.StringFixed(2),
		Description: op.Description,
		Category:    op.Category,
		CreatedAt:   op.CreatedAt,
		UpdatedAt:   op.UpdatedAt,
	}
	if op.TransferGroupID.Valid && op.TransferGroupID.UUID != uuid.Nil {
		resp.TransferGroupID = op.TransferGroupID.UUID.String()
	}
	return resp
}

func toOperationResponses(ops []core.Operation) []operationResponse {
	out := make([]operationResponse, 0, len(ops))
	for _, op := range ops {
		out = append(out, toOperationResponse(op))
	}
	return out
}

func (s *Server) handleCreateOperation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload operationPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	op, err := payload.toOperation(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.operations.Create(r.Context(), op)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(created)
	writeJSON(w, http.StatusCreated, toOperationResponse(created))
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	op, err := s.operations.Get(r.Context(), user.ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationResponse(op))
}

func (s *Server) handleUpdateOperation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	var payload operationPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	op, err := payload.toOperation(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	op.ID = id

	// Read the row before replacing it so the summaries of the old month get
	// invalidated too when the date moves.
	existing, err := s.operations.Get(r.Context(), user.ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := s.operations.Update(r.Context(), op)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(existing, updated)
	writeJSON(w, http.StatusOK, toOperationResponse(updated))
}

func (s *Server) handleDeleteOperation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	removed, err := s.operations.Delete(r.Context(), user.ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(removed...)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(removed)})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	ops, err := s.operations.List(r.Context(), user.ID, year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationResponses(ops))
}

type categoryAmountResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type monthSummaryResponse struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	Income     string                   `json:"income"`
	Expenses   string                   `json:"expenses"`
	Savings    string                   `json:"savings"`
	Balance    string                   `json:"balance"`
	ByCategory []categoryAmountResponse `json:"by_category"`
}

func toMonthSummaryResponse(sum core.MonthSummary) monthSummaryResponse {
	resp := monthSummaryResponse{
		Year:       sum.Year,
		Month:      sum.Month,
		Income:     sum.Income.StringFixed(2),
		Expenses:   sum.Expenses.StringFixed(2),
		Savings:    sum.Savings.StringFixed(2),
		Balance:    sum.Balance.StringFixed(2),
		ByCategory: make([]categoryAmountResponse, 0, len(sum.ByCategory)),
	}
	for _, ca := range sum.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{
			Category: ca.Name,
			Amount:   ca.Amount.StringFixed(2),
		})
	}
	return resp
}

type yearSummaryResponse struct {
	Year     int                    `json:"year"`
	Income   string                 `json:"income"`
	Expenses string                 `json:"expenses"`
	Savings  string                 `json:"savings"`
	Balance  string                 `json:"balance"`
	Months   []monthSummaryResponse `json:"months"`
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	key := summaryKey(user.ID, year, month)
	if cached, ok := s.monthCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toMonthSummaryResponse(cached))
		return
	}

	sum, err := s.operations.MonthSummary(r.Context(), user.ID, year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.monthCache.Set(key, sum)
	writeJSON(w, http.StatusOK, toMonthSummaryResponse(sum))
}

func (s *Server) handleYearSummary(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	key := yearKey(user.ID, year)
	if cached, ok := s.yearCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toYearSummaryResponse(cached))
		return
	}

	sum, err := s.operations.YearSummary(r.Context(), user.ID, year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.yearCache.Set(key, sum)
	writeJSON(w, http.StatusOK, toYearSummaryResponse(sum))
}

func toYearSummaryResponse(sum core.YearSummary) yearSummaryResponse {
	resp := yearSummaryResponse{
		Year:     sum.Year,
		Income:   sum.Income.StringFixed(2),
		Expenses: sum.Expenses.StringFixed(2),
		Savings:  sum.Savings.StringFixed(2),
		Balance:  sum.Balance.StringFixed(2),
		Months:   make([]monthSummaryResponse, 0, len(sum.Months)),
	}
	for _, m := range sum.Months {
		resp.Months = append(resp.Months, toMonthSummaryResponse(m))
	}
	return resp
}
