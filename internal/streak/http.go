package streak

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fotobook/nft-engine/internal/api"
	"github.com/fotobook/nft-engine/internal/model"
)

// ActivityRequest is the JSON body for POST /api/v1/activity.
type ActivityRequest struct {
	Account string `json:"account"`
}

// HandleRecordActivity handles POST /api/v1/activity.
func (s *Service) HandleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	st, err := s.RecordActivity(r.Context(), req.Account)
	if err != nil {
		writeStreakError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, st)
}

// HandleLeaderboard handles GET /api/v1/leaderboard?n=10.
func (s *Service) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))

	streaks, err := s.Top(r.Context(), n)
	if err != nil {
		writeStreakError(w, err)
		return
	}
	if streaks == nil {
		streaks = []model.Streak{}
	}

	api.WriteJSON(w, http.StatusOK, streaks)
}

func writeStreakError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrUnauthorized):
		api.WriteError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrNotConfigured):
		api.WriteError(w, err.Error(), http.StatusConflict)
	default:
		api.WriteError(w, err.Error(), http.StatusInternalServerError)
	}
}
