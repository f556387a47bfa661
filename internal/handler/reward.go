package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sawamura722/cardcapital/internal/domain/reward"
)

type rewardResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"pointsRequired"`
	Extra          bool   `json:"extra"`
}

type rewardRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"pointsRequired"`
	Extra          bool   `json:"extra"`
}

type claimedRewardResponse struct {
	RewardID  string `json:"rewardId"`
	Name      string `json:"name"`
	ClaimedAt string `json:"claimedAt"`
}

func toRewardResponse(d reward.Definition) rewardResponse {
	return rewardResponse{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		PointsRequired: d.PointsRequired,
		Extra:          d.Extra,
	}
}

func (h *Handler) listRewards(w http.ResponseWriter, r *http.Request) {
	items, err := h.rewards.ListDefinitions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]rewardResponse, len(items))
	for i, d := range items {
		out[i] = toRewardResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getReward(w http.ResponseWriter, r *http.Request) {
	d, err := h.rewards.GetDefinition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRewardResponse(*d))
}

func (h *Handler) listClaimedRewards(w http.ResponseWriter, r *http.Request) {
	claims, err := h.rewards.ListClaims(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.RewardID
	}
	defs, err := h.rewards.GetDefinitions(r.Context(), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make(map[string]string, len(defs))
	for _, d := range defs {
		names[d.ID] = d.Name
	}

	out := make([]claimedRewardResponse, len(claims))
	for i, c := range claims {
		out[i] = claimedRewardResponse{
			RewardID:  c.RewardID,
			Name:      names[c.RewardID],
			ClaimedAt: c.ClaimedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		badRequest(w, "name required")
		return
	}
	if req.PointsRequired < 0 {
		badRequest(w, "pointsRequired must not be negative")
		return
	}

	d := &reward.Definition{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		Extra:          req.Extra,
	}
	if err := h.rewards.CreateDefinition(r.Context(), d); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRewardResponse(*d))
}

func (h *Handler) updateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	d := &reward.Definition{
		ID:             r.PathValue("id"),
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		Extra:          req.Extra,
	}
	if err := h.rewards.UpdateDefinition(r.Context(), d); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRewardResponse(*d))
}

func (h *Handler) deleteReward(w http.ResponseWriter, r *http.Request) {
	if err := h.rewards.DeleteDefinition(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
