package messages

// Error codes carried in an error envelope.
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeSessionFailed    = "SESSION_FAILED"
	ErrCodeConnectionClosed = "CONNECTION_CLOSED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeBufferFull       = "BUFFER_FULL"
	ErrCodeTurnFailed       = "TURN_FAILED"
)

// Server envelope types
const (
	TypeReply  = "reply"
	TypeStatus = "status"
	TypeError  = "error"
)

// Status values
const (
	StatusConnected    = "connected"
	StatusTurnComplete = "turn_complete"
	StatusPong         = "pong"
)

// ServerMessage is the envelope for everything the desk sends a websocket client.
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Payload   any    `json:"payload"`
}

// ReplyPayload is the spoken answer to one turn. State is the dialogue state
// after the turn, so clients can adapt their prompts.
type ReplyPayload struct {
	Text   string `json:"text"`
	State  string `json:"state"`
	Intent string `json:"intent,omitempty"`
}

type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func envelope(kind, sessionID string, payload any) *ServerMessage {
	return &ServerMessage{Type: kind, SessionID: sessionID, Payload: payload}
}

// NewReplyMessage wraps the reply to a turn.
func NewReplyMessage(sessionID, text, state, intent string) *ServerMessage {
	return envelope(TypeReply, sessionID, ReplyPayload{Text: text, State: state, Intent: intent})
}

func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return envelope(TypeStatus, sessionID, StatusPayload{Status: status, Message: message})
}

func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return envelope(TypeError, sessionID, ErrorPayload{Code: code, Message: message})
}
