package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sawamura722/cardcapital/internal/domain/tournament"
)

type tournamentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
}

type tournamentRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
}

type rankingResponse struct {
	UserID string `json:"userId"`
	Rank   int    `json:"rank"`
}

type registerRequest struct {
	UserID string `json:"userId"`
}

type setRankRequest struct {
	Rank int `json:"rank"`
}

func toTournamentResponse(t tournament.Tournament) tournamentResponse {
	return tournamentResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Location:    t.Location,
		Date:        t.Date.Format(time.RFC3339),
	}
}

func (h *Handler) listTournaments(w http.ResponseWriter, r *http.Request) {
	items, err := h.tournaments.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]tournamentResponse, len(items))
	for i, t := range items {
		out[i] = toTournamentResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := h.tournaments.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentResponse(*t))
}

func (h *Handler) createTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		badRequest(w, "name required")
		return
	}

	t := &tournament.Tournament{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
	}
	if err := h.tournaments.Create(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTournamentResponse(*t))
}

func (h *Handler) updateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	t := &tournament.Tournament{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
	}
	if err := h.tournaments.Update(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentResponse(*t))
}

func (h *Handler) deleteTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.tournaments.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listRankings(w http.ResponseWriter, r *http.Request) {
	items, err := h.tournaments.ListRankings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]rankingResponse, len(items))
	for i, rk := range items {
		out[i] = rankingResponse{UserID: rk.UserID, Rank: rk.Rank}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) registerTournament(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(w, "userId required")
		return
	}

	if err := h.tournaments.Register(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) unregisterTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.tournaments.Unregister(r.Context(), r.PathValue("id"), r.PathValue("userID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setRank(w http.ResponseWriter, r *http.Request) {
	var req setRankRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Rank < 1 {
		badRequest(w, "rank must be at least 1")
		return
	}

	if err := h.tournaments.SetRank(r.Context(), r.PathValue("id"), r.PathValue("userID"), req.Rank); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
