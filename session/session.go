package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/messages"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// ClientSession represents a single websocket client's connection
type ClientSession struct {
	ID         string
	ClientConn *websocket.Conn
	Conv       *Conversation
	Transcript *TranscriptBuffer // Buffer for partial transcript fragments
	CreatedAt  time.Time

	// Use channels for non-blocking writes
	writeChan chan any

	logger    *zap.Logger
	mu        sync.RWMutex
	closed    bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession binds a websocket connection to a conversation
func NewClientSession(id string, clientConn *websocket.Conn, conv *Conversation, maxBufferSize int, logger *zap.Logger) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(64 * 1024)
	clientConn.EnableWriteCompression(true)

	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientSession{
		ID:         id,
		ClientConn: clientConn,
		Conv:       conv,
		Transcript: NewTranscriptBuffer(maxBufferSize),
		CreatedAt:  time.Now(),
		writeChan:  make(chan any, writeBufferSize),
		logger:     logger.With(zap.String("session_id", id)),
		CloseChan:  make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the bidirectional message handling and greets the caller
func (cs *ClientSession) Start() {
	cs.Conv.Start()
	go cs.writePump()
	cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusConnected, "Session established"))
	cs.queueMessage(messages.NewReplyMessage(cs.ID, cs.Conv.Greeting(), string(cs.Conv.Context().State), ""))
	go cs.handleClientMessages()
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	defer func() {
		// Send close message before exiting
		cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case msg, ok := <-cs.writeChan:
			if !ok {
				return
			}

			frame, err := sonic.Marshal(msg)
			if err != nil {
				cs.logger.Error("Failed to encode outbound message", zap.Error(err))
				continue
			}
			cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteMessage(websocket.TextMessage, frame); err != nil {
				cs.logger.Debug("Write failed", zap.Error(err))
				return
			}
		}
	}
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg any) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.closed {
		return
	}
	select {
	case cs.writeChan <- msg:
	default:
		cs.logger.Warn("Write queue full, dropping message")
	}
}

// Close terminates the session and cleans up resources
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	// Closing under the lock keeps queueMessage from sending on a closed channel.
	close(cs.writeChan)
	cs.mu.Unlock()

	cs.cancel()
	close(cs.CloseChan)

	cs.Transcript.Clear()
	cs.Conv.Close()

	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}
	return nil
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		select {
		case <-cs.CloseChan:
			return
		default:
			messageType, message, err := cs.ClientConn.ReadMessage()
			if err != nil {
				if !cs.IsClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					cs.logger.Warn("WebSocket read error", zap.Error(err))
				}
				return
			}

			if messageType == websocket.BinaryMessage {
				cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Binary frames are not supported, send transcripts as JSON"))
				continue
			}

			var clientMsg messages.ClientMessage
			if err := sonic.Unmarshal(message, &clientMsg); err != nil {
				cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
				continue
			}

			cs.processClientMessage(&clientMsg)
		}
	}
}

func (cs *ClientSession) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeTranscript:
		var payload messages.TranscriptPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid transcript payload"))
			return
		}
		if err := cs.Transcript.Append(payload.Text); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeBufferFull,
				fmt.Sprintf("Transcript buffer full (max %d bytes)", cs.Transcript.MaxSize())))
			return
		}
		if payload.Final {
			cs.handleEndTurn()
		}

	case messages.TypeControl:
		var payload messages.ControlPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		cs.handleControlMessage(&payload)

	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (cs *ClientSession) handleControlMessage(payload *messages.ControlPayload) {
	switch payload.Action {
	case messages.ActionPing:
		cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusPong, ""))
	case messages.ActionEndTurn:
		cs.handleEndTurn()
	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
	}
}

// handleEndTurn flushes the transcript buffer into one turn. An empty buffer
// counts as unheard input.
func (cs *ClientSession) handleEndTurn() {
	text := cs.Transcript.Flush()

	turn, err := cs.Conv.Submit(cs.ctx, text)
	switch {
	case errors.Is(err, ErrRateLimited):
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeRateLimited, "Too many turns, please slow down"))
		return
	case err != nil:
		if !cs.IsClosed() {
			cs.logger.Warn("Turn not applied", zap.Error(err))
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeTurnFailed, err.Error()))
		}
		return
	}

	cs.queueMessage(messages.NewReplyMessage(cs.ID, turn.Reply, string(turn.Next.State), string(turn.Intent)))
	cs.queueMessage(messages.NewStatusMessage(cs.ID, messages.StatusTurnComplete, ""))
}
