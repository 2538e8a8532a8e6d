package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/room4-2/FrontDesk/dialogue"
	"github.com/room4-2/FrontDesk/intent"
)

var (
	// ErrRateLimited is returned by Submit when transcripts arrive faster than
	// the configured turn rate.
	ErrRateLimited = errors.New("turn rate exceeded")
	// ErrClosed is returned by Submit once the conversation has been closed.
	ErrClosed = errors.New("conversation closed")
)

const panicReply = "Sorry, something went wrong on my side. Could you say that again?"

// Options tune a conversation's turn loop.
type Options struct {
	// IdleTimeout resets the dialogue context after this long without a turn.
	IdleTimeout time.Duration
	TurnRate    float64
	TurnBurst   int
	// OnTurn, when set, observes every completed turn from the loop goroutine.
	OnTurn func(id string, t dialogue.Turn)
	// OnReset, when set, observes idle resets.
	OnReset func(id string)
}

type request struct {
	text  string
	reply chan dialogue.Turn
}

// Conversation owns the dialogue context of one caller and applies turns to it
// one at a time, whichever transport they arrive on.
type Conversation struct {
	ID string

	machine *dialogue.Machine
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger

	inbox  chan request
	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	current      dialogue.Context
	lastActivity time.Time
	closed       bool
	started      bool
}

// NewConversation creates a conversation in the Unidentified state. Start must
// be called before Submit.
func NewConversation(id string, machine *dialogue.Machine, opts Options, logger *zap.Logger) *Conversation {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	limit := rate.Inf
	if opts.TurnRate > 0 {
		limit = rate.Limit(opts.TurnRate)
	}
	if opts.TurnBurst <= 0 {
		opts.TurnBurst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		ID:           id,
		machine:      machine,
		opts:         opts,
		limiter:      rate.NewLimiter(limit, opts.TurnBurst),
		logger:       logger.With(zap.String("session_id", id)),
		inbox:        make(chan request),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		current:      dialogue.Context{State: dialogue.Unidentified},
		lastActivity: time.Now(),
	}
}

// Start launches the turn loop. Calling it more than once is a no-op.
func (c *Conversation) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	c.wg.Add(1)
	go c.loop()
}

// Greeting is the opening line for this conversation.
func (c *Conversation) Greeting() string {
	return c.machine.Greeting()
}

// Submit applies one final transcript and waits for the reply. An empty
// transcript is treated as unheard input.
func (c *Conversation) Submit(ctx context.Context, text string) (dialogue.Turn, error) {
	if c.IsClosed() {
		return dialogue.Turn{}, ErrClosed
	}
	if !c.limiter.Allow() {
		return dialogue.Turn{}, ErrRateLimited
	}

	req := request{text: text, reply: make(chan dialogue.Turn, 1)}
	select {
	case c.inbox <- req:
	case <-c.done:
		return dialogue.Turn{}, ErrClosed
	case <-ctx.Done():
		return dialogue.Turn{}, ctx.Err()
	}

	select {
	case t := <-req.reply:
		return t, nil
	case <-c.done:
		return dialogue.Turn{}, ErrClosed
	case <-ctx.Done():
		return dialogue.Turn{}, ctx.Err()
	}
}

// Context returns a copy of the current dialogue context.
func (c *Conversation) Context() dialogue.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// LastActivity returns when the last turn was applied.
func (c *Conversation) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// IsClosed returns whether the conversation is closed
func (c *Conversation) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close stops the turn loop and waits for it to exit.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	close(c.done)
	c.wg.Wait()
}

func (c *Conversation) loop() {
	defer c.wg.Done()

	idle := time.NewTimer(c.opts.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-c.done:
			return

		case req := <-c.inbox:
			t := c.apply(req.text)
			req.reply <- t
			if c.opts.OnTurn != nil {
				c.opts.OnTurn(c.ID, t)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(c.opts.IdleTimeout)

		case <-idle.C:
			c.mu.Lock()
			c.current = c.machine.Reset(c.current)
			c.mu.Unlock()
			c.logger.Info("Conversation idle, context reset", zap.Duration("idle_timeout", c.opts.IdleTimeout))
			if c.opts.OnReset != nil {
				c.opts.OnReset(c.ID)
			}
		}
	}
}

// apply runs one turn. A panic in the machine is reported as a failed turn and
// leaves the context as it was.
func (c *Conversation) apply(text string) (t dialogue.Turn) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Turn panicked", zap.Any("panic", r), zap.Stack("stack"))
			t = dialogue.Turn{
				Next:   current,
				Reply:  panicReply,
				Intent: intent.Unknown,
				Err:    fmt.Errorf("turn panicked: %v", r),
			}
		}
	}()

	t = c.machine.Step(c.ctx, current, text)

	c.mu.Lock()
	c.current = t.Next
	c.lastActivity = time.Now()
	c.mu.Unlock()
	return t
}
