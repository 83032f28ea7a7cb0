package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/hub"
	"github.com/Fuzzydust/bb-CBA/internal/matchmaker"
	"github.com/Fuzzydust/bb-CBA/internal/ws"
)

func SetupRoutes(mm *matchmaker.Matchmaker, h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/matchmaking", StartMatchmaking(mm, log))
	r.Delete("/matchmaking/{battleID}", CancelMatchmaking(mm))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	return r
}
