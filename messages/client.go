package messages

import "encoding/json"

// Client message types
const (
	TypeTranscript = "transcript"
	TypeControl    = "control"
)

// Control actions
const (
	ActionPing    = "ping"
	ActionEndTurn = "end_turn"
)

// ClientMessage represents a message from frontend client
type ClientMessage struct {
	Type    string          `json:"type"` // "transcript", "control"
	Payload json.RawMessage `json:"payload"`
}

// TranscriptPayload carries recognized speech. Partial fragments are buffered
// until a final fragment or an end_turn control arrives.
type TranscriptPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "end_turn"
}
