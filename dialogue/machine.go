package dialogue

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/cache"
	"github.com/room4-2/FrontDesk/course"
	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/hr"
	"github.com/room4-2/FrontDesk/intent"
	"github.com/room4-2/FrontDesk/metrics"
	"github.com/room4-2/FrontDesk/scheduler"
)

const followUp = "What else can I help you with?"

// MaxAttempts bounds retries of an identification prompt and consecutive
// misunderstood turns before the reply degrades.
const MaxAttempts = 3

// Deps are the collaborators a Machine drives. Dialogue and Counselor may be
// nil; the machine then skips generated replies and falls back to autoschedule.
type Deps struct {
	Store      domain.Store
	Scheduler  *scheduler.Scheduler
	HR         *hr.Handler
	Courses    *cache.CourseCache
	Resolver   *course.Resolver
	Classifier *intent.Classifier
	Dialogue   domain.Dialogue
	Counselor  domain.Counselor

	Org       string
	HRContact string
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Machine is the conversation reducer. It is safe for concurrent use; all
// per-conversation state lives in the Context values passed through Step.
type Machine struct {
	d      Deps
	logger *zap.Logger
}

func NewMachine(d Deps) *Machine {
	if d.Resolver == nil {
		d.Resolver = course.Default()
	}
	if d.Classifier == nil {
		d.Classifier = intent.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Courses == nil {
		d.Courses = cache.NewCourseCache(d.Store, nil, 0, d.Logger, d.Metrics)
	}
	if d.Org == "" {
		d.Org = "Regex Software"
	}
	return &Machine{d: d, logger: d.Logger.Named("dialogue")}
}

// Greeting is the first thing said on a new conversation.
func (m *Machine) Greeting() string {
	return "Hello, I'm Emma, your HR assistant at " + m.d.Org + ". " + codePrompt
}

// Reset returns the context an idle conversation falls back to. Persisted
// records are untouched; only the in-memory selections are dropped.
func (m *Machine) Reset(Context) Context {
	return Context{State: Unidentified}
}

// Unheard handles a turn where nothing intelligible was captured.
func (m *Machine) Unheard(c Context) Turn {
	next, reply := miss(c)
	m.d.Metrics.Turn(string(next.State))
	return Turn{Next: next, Reply: reply, Intent: intent.Unknown, Err: domain.ErrInputUnrecognized}
}

func miss(c Context) (Context, string) {
	c.Misses++
	if c.Misses >= MaxAttempts {
		c.Misses = 0
		return c, "I'm having trouble hearing you. Please try again or say 'schedule counseling'."
	}
	return c, "Sorry, I didn't catch that. Could you say it again?"
}

// outcome is what a handler produces before bookkeeping.
type outcome struct {
	next   Context
	reply  string
	intent intent.Intent
	err    error
	missed bool
}

// Step processes one final transcript. The interaction is persisted before
// Step returns, so audit order matches turn order.
func (m *Machine) Step(ctx context.Context, c Context, transcript string) Turn {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return m.Unheard(c)
	}
	if c.State == "" {
		c.State = Unidentified
	}

	var out outcome
	if c.State.Identifying() {
		out = m.identify(ctx, c, text)
	} else {
		out = m.converse(ctx, c, text)
	}
	if !out.missed {
		out.next.Misses = 0
	}
	if out.err != nil {
		m.logger.Info("Turn recovered from error",
			zap.String("state", string(c.State)),
			zap.String("intent", string(out.intent)),
			zap.Error(out.err))
	}

	if out.next.Bound() {
		rec := &domain.Interaction{EmployeeID: out.next.EmployeeID, Query: transcript, Response: out.reply}
		if err := m.d.Store.InsertInteraction(ctx, rec); err != nil {
			m.logger.Error("Failed to save interaction", zap.Error(domain.Unavailable("save interaction", err)))
		}
	}

	m.d.Metrics.Turn(string(out.next.State))
	return Turn{Next: out.next, Reply: out.reply, Intent: out.intent, Err: out.err}
}

func (m *Machine) converse(ctx context.Context, c Context, text string) outcome {
	in := m.d.Classifier.Classify(text)

	if hr.Handles(in) && m.d.HR != nil {
		res := m.d.HR.Handle(ctx, hr.Session{
			Authenticated: c.HRAuthenticated,
			User:          c.HRUser,
			EmployeeName:  c.Name,
		}, in, text)
		next := c
		next.HRAuthenticated = res.Authenticated
		next.HRUser = res.User
		return outcome{next: next, reply: res.Reply, intent: in, err: res.Err}
	}

	// Canned openers only apply with no workflow and no course in play.
	if c.State == Idle && c.Course == "" {
		if o, ok := cache.LookupOpener(text); ok {
			return m.opener(c, o)
		}
	}

	switch c.State {
	case AwaitingChoice:
		return m.awaitingChoice(ctx, c, text, in)
	case AwaitingCourseSuggestion:
		return m.awaitingSuggestion(ctx, c, text, in)
	case AwaitingMode:
		return m.awaitingMode(ctx, c, text, in)
	case AwaitingScheduleInput:
		return m.awaitingSchedule(ctx, c, text, in)
	default:
		c.State = Idle
		return m.idle(ctx, c, text, in)
	}
}

func (m *Machine) opener(c Context, o cache.Opener) outcome {
	next := c
	next.LastIntent = o.Intent
	switch {
	case o.Intent == intent.Schedule && o.BookNow:
		next.State = AwaitingScheduleInput
		next.Mode = domain.ModeOffline
	case o.Intent == intent.Schedule:
		next.State = AwaitingChoice
	case o.Intent == intent.Reschedule:
		next.State = AwaitingScheduleInput
	default:
		next.State = Idle
	}
	m.logger.Debug("Used canned opener", zap.String("phrase", o.Phrase))
	return outcome{next: next, reply: o.Render(c.Name), intent: o.Intent}
}
