package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/engine"
	"github.com/Fuzzydust/bb-CBA/internal/hub"
	"github.com/Fuzzydust/bb-CBA/internal/session"
	"github.com/Fuzzydust/bb-CBA/internal/types"
)

// Handler attaches a websocket client to its battle session. Snapshots
// of the read model stream out as the session reconciles; PerformAction
// messages stream in as fire-and-forget inputs.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		battleID := r.URL.Query().Get("battle")
		userID := r.URL.Query().Get("user")
		if battleID == "" || userID == "" {
			http.Error(w, "missing battle or user", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{BattleID: battleID, UserID: userID, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "session unavailable", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := randID(6)

		s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- session.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				view := snap.View
				msg := types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, View: &view}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			action, ok := toAction(cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown type"}`))
				continue
			}

			s.Inbox() <- session.Act{Action: action}
		}
	}
}

func toAction(m types.ClientMessage) (engine.ActionType, bool) {
	if m.Type != "PerformAction" {
		return "", false
	}
	switch m.Action {
	case "attack":
		return engine.ActionAttack, true
	case "ability":
		return engine.ActionAbility, true
	case "defend":
		return engine.ActionDefend, true
	default:
		return "", false
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
