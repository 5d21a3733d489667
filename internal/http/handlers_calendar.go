package http

import (
	"encoding/json"
	"net/http"

	"hucha/internal/core"
)

type calendarEventPayload struct {
	Name       string          `json:"name"`
	Day        int             `json:"day"`
	AmountMin  json.Number     `json:"amount_min"`
	AmountMax  json.Number     `json:"amount_max,omitempty"`
	Category   string          `json:"category"`
	Recurrence json.RawMessage `json:"recurrence"`
}

func (p calendarEventPayload) toEvent(userID int64) (core.CalendarEvent, error) {
	amountMin, err := core.ParsePositiveAmount(p.AmountMin.String())
	if err != nil {
		return core.CalendarEvent{}, err
	}

	ev := core.CalendarEvent{
		UserID:     userID,
		Name:       p.Name,
		Day:        p.Day,
		AmountMin:  amountMin,
		Category:   p.Category,
		Recurrence: string(p.Recurrence),
		Active:     true,
	}
	if p.AmountMax != "" {
		amountMax, err := core.ParsePositiveAmount(p.AmountMax.String())
		if err != nil {
			return core.CalendarEvent{}, err
		}
		ev.AmountMax = amountMax
		ev.HasMax = true
	}
	return ev, nil
}

type calendarEventResponse struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Day        int             `json:"day"`
	AmountMin  string          `json:"amount_min"`
	AmountMax  string          `json:"amount_max,omitempty"`
	Category   string          `json:"category"`
	Recurrence json.RawMessage `json:"recurrence"`
	Active     bool            `json:"active"`
}

func toEventResponse(ev core.CalendarEvent) calendarEventResponse {
	resp := calendarEventResponse{
		ID:         ev.ID,
		Name:       ev.Name,
		Day:        ev.Day,
		AmountMin:  ev.AmountMin.StringFixed(2),
		Category:   ev.Category,
		Recurrence: json.RawMessage(ev.Recurrence),
		Active:     ev.Active,
	}
	if ev.HasMax {
		resp.AmountMax = ev.AmountMax.StringFixed(2)
	}
	return resp
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload calendarEventPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	ev, err := payload.toEvent(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.calendar.Create(r.Context(), ev)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	ev, err := s.calendar.Get(r.Context(), user.ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	var payload calendarEventPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	ev, err := payload.toEvent(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ev.ID = id

	updated, err := s.calendar.Update(r.Context(), ev)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(updated))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	if err := s.calendar.Deactivate(r.Context(), user.ID, id); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	all := r.URL.Query().Get("all")
	includeInactive := all == "1" || all == "true"

	events, err := s.calendar.List(r.Context(), user.ID, includeInactive)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]calendarEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, out)
}

type eventOccurrenceResponse struct {
	calendarEventResponse
	OccursOn int `json:"occurs_on"`
}

// handleCalendarMonth renders the events due in the requested month, each
// with the concrete day it falls on.
func (s *Server) handleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
		return
	}

	occurrences, err := s.calendar.MonthView(r.Context(), user.ID, year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]eventOccurrenceResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, eventOccurrenceResponse{
			calendarEventResponse: toEventResponse(occ.Event),
			OccursOn:              occ.Day,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
