// Package session runs conversations for connected callers and tracks them.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/dialogue"
	"github.com/room4-2/FrontDesk/metrics"
)

// ErrTooManySessions is returned when MaxSessions conversations are already open.
var ErrTooManySessions = errors.New("maximum sessions reached")

const activeSessionsKey = "active_sessions"

// Config bounds the conversations a manager runs.
type Config struct {
	MaxSessions    int
	SessionTimeout time.Duration
	IdleTimeout    time.Duration
	MaxBufferSize  int
	TurnRate       float64
	TurnBurst      int
}

// Manager manages all client sessions and voice calls
type Manager struct {
	sessions map[string]*ClientSession
	calls    map[string]*Conversation
	mu       sync.RWMutex

	machine *dialogue.Machine
	redis   *redis.Client
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewManager creates a session manager. rdb may be nil, in which case sessions
// are tracked in memory only.
func NewManager(cfg Config, machine *dialogue.Machine, rdb *redis.Client, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 100
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*ClientSession),
		calls:    make(map[string]*Conversation),
		machine:  machine,
		redis:    rdb,
		config:   cfg,
		logger:   logger.Named("session"),
		metrics:  m,
	}
}

func (sm *Manager) newConversation(id string) *Conversation {
	return NewConversation(id, sm.machine, Options{
		IdleTimeout: sm.config.IdleTimeout,
		TurnRate:    sm.config.TurnRate,
		TurnBurst:   sm.config.TurnBurst,
		OnTurn:      sm.recordTurn,
	}, sm.logger)
}

func (sm *Manager) atCapacityLocked() bool {
	return len(sm.sessions)+len(sm.calls) >= sm.config.MaxSessions
}

// CreateSession creates a new websocket client session
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.atCapacityLocked() {
		return nil, ErrTooManySessions
	}

	sessionID := uuid.New().String()
	session := NewClientSession(sessionID, clientConn, sm.newConversation(sessionID), sm.config.MaxBufferSize, sm.logger)

	sm.sessions[sessionID] = session
	sm.mirror(ctx, sessionID, "websocket", session.CreatedAt)
	sm.metrics.SessionOpened()
	return session, nil
}

// Call returns the conversation for a voice call, starting one on first use.
// created reports whether the call is new and should be greeted.
func (sm *Manager) Call(ctx context.Context, callSid string) (conv *Conversation, created bool, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if conv, ok := sm.calls[callSid]; ok && !conv.IsClosed() {
		return conv, false, nil
	}
	if sm.atCapacityLocked() {
		return nil, false, ErrTooManySessions
	}

	conv = sm.newConversation(callSid)
	conv.Start()
	sm.calls[callSid] = conv
	sm.mirror(ctx, callSid, "twilio", time.Now())
	sm.metrics.SessionOpened()
	return conv, true, nil
}

// EndCall closes and forgets a voice call.
func (sm *Manager) EndCall(ctx context.Context, callSid string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	conv, ok := sm.calls[callSid]
	if !ok {
		return
	}
	conv.Close()
	delete(sm.calls, callSid)
	sm.forget(ctx, callSid)
	sm.metrics.SessionClosed()
}

// mirror records a conversation in Redis for operators.
func (sm *Manager) mirror(ctx context.Context, id, kind string, created time.Time) {
	if sm.redis == nil {
		return
	}
	key := "session:" + id
	pipe := sm.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"created_at":    created.Format(time.RFC3339),
		"last_activity": created.Format(time.RFC3339),
		"status":        "active",
		"kind":          kind,
		"state":         string(dialogue.Unidentified),
	})
	pipe.SAdd(ctx, activeSessionsKey, id)
	pipe.Expire(ctx, key, sm.config.SessionTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		sm.logger.Warn("Failed to mirror session", zap.String("session_id", id), zap.Error(err))
	}
}

func (sm *Manager) recordTurn(id string, t dialogue.Turn) {
	if sm.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := "session:" + id
	pipe := sm.redis.TxPipeline()
	pipe.HSet(ctx, key, "last_activity", time.Now().Format(time.RFC3339), "state", string(t.Next.State))
	pipe.Expire(ctx, key, sm.config.SessionTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		sm.logger.Debug("Failed to update session mirror", zap.String("session_id", id), zap.Error(err))
	}
}

func (sm *Manager) forget(ctx context.Context, id string) {
	if sm.redis == nil {
		return
	}
	if err := sm.redis.Del(ctx, "session:"+id).Err(); err != nil {
		sm.logger.Debug("Failed to delete session mirror", zap.String("session_id", id), zap.Error(err))
	}
	sm.redis.SRem(ctx, activeSessionsKey, id)
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession cleans up and removes a session
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	session.Close()
	delete(sm.sessions, sessionID)
	sm.forget(ctx, sessionID)
	sm.metrics.SessionClosed()
	return nil
}

// GetActiveSessionCount returns current session count, voice calls included
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions) + len(sm.calls)
}

// CleanupInactiveSessions removes sessions and calls that have been inactive
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.Conv.LastActivity()) > sm.config.SessionTimeout {
			session.Close()
			delete(sm.sessions, id)
			sm.forget(ctx, id)
			sm.metrics.SessionClosed()
		}
	}
	for sid, conv := range sm.calls {
		if conv.IsClosed() || now.Sub(conv.LastActivity()) > sm.config.SessionTimeout {
			conv.Close()
			delete(sm.calls, sid)
			sm.forget(ctx, sid)
			sm.metrics.SessionClosed()
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all sessions and calls
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, id)
		sm.metrics.SessionClosed()
	}
	for sid, conv := range sm.calls {
		conv.Close()
		delete(sm.calls, sid)
		sm.metrics.SessionClosed()
	}
}
