package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RequestPayload carries every field a client action may need.
type RequestPayload struct {
	SessionID string `json:"session_id,omitempty"`
	Choice    string `json:"choice,omitempty"`
	Name      string `json:"name,omitempty"`
	Question  string `json:"question,omitempty"`
	Side      string `json:"side,omitempty"`
}

type ResponsePayload struct {
	Game  *usecase.View       `json:"game,omitempty"`
	Title *usecase.TitleCheck `json:"title,omitempty"`
	Stats *entity.Summary     `json:"stats,omitempty"`
	Error string              `json:"error,omitempty"`
}
