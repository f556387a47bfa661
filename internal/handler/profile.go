package handler

import (
	"net/http"

	"github.com/sawamura722/cardcapital/internal/domain/profile"
)

type profileResponse struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Point      int64  `json:"point"`
	Subscribed bool   `json:"subscribed"`
}

type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type subscriptionRequest struct {
	Subscribed bool `json:"subscribed"`
}

func toProfileResponse(p profile.Profile) profileResponse {
	return profileResponse{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Point:      p.Point,
		Subscribed: p.Subscribed,
	}
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetByID(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(*p))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	id := r.PathValue("userID")
	p, err := h.profiles.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p.FirstName = req.FirstName
	p.LastName = req.LastName
	p.Email = req.Email
	if err := h.profiles.Update(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(*p))
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	id := r.PathValue("userID")
	if err := h.profiles.SetSubscribed(r.Context(), id, req.Subscribed); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.profiles.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(*p))
}
