package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/matchmaker"
)

type startRequest struct {
	UserID string `json:"user_id"`
	CardID string `json:"card_id"`
}

type startResponse struct {
	BattleID      string `json:"battle_id"`
	ParticipantID string `json:"participant_id"`
	Position      int    `json:"position"`
	Waiting       bool   `json:"waiting"`
}

// StartMatchmaking pairs the caller into a battle or parks them in a
// waiting one. The caller then opens the websocket to observe the battle
// going active.
func StartMatchmaking(mm *matchmaker.Matchmaker, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.CardID == "" {
			http.Error(w, "user_id and card_id required", http.StatusBadRequest)
			return
		}

		ticket, err := mm.Start(r.Context(), req.UserID, req.CardID)
		if err != nil {
			log.Error("matchmaking failed", zap.String("user_id", req.UserID), zap.Error(err))
			http.Error(w, "matchmaking failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(startResponse{
			BattleID:      ticket.BattleID,
			ParticipantID: ticket.ParticipantID,
			Position:      ticket.Position,
			Waiting:       ticket.Waiting,
		})
	}
}

// CancelMatchmaking withdraws a waiting battle. A 409 means an opponent
// joined first and the battle is already live.
func CancelMatchmaking(mm *matchmaker.Matchmaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		battleID := chi.URLParam(r, "battleID")
		if battleID == "" {
			http.Error(w, "missing battle id", http.StatusBadRequest)
			return
		}
		if err := mm.Cancel(r.Context(), battleID); err != nil {
			if errors.Is(err, matchmaker.ErrBattleActive) {
				http.Error(w, "battle already active", http.StatusConflict)
				return
			}
			http.Error(w, "cancel failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
