package types

import "github.com/Fuzzydust/bb-CBA/internal/session"

type ClientMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"` // "attack" | "ability" | "defend"
}

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Error"
	Version int           `json:"version,omitempty"`
	View    *session.View `json:"view,omitempty"`
	Error   string        `json:"error,omitempty"`
}
