package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/datetime"
	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/intent"
	"github.com/room4-2/FrontDesk/scheduler"
)

const (
	timeExample   = "like May 15, 2025 at 11 AM"
	choicePrompt  = "do you have a course in mind, or would you like help choosing one?"
	modeQuestion  = "online or offline at our office?"
	bookShortcuts = "just schedule|book counseling|schedule now|schedule only session"
)

func (m *Machine) idle(ctx context.Context, c Context, text string, in intent.Intent) outcome {
	switch in {
	case intent.Schedule:
		if match := m.d.Resolver.Resolve(text, ""); match.Fresh {
			return m.selectCourse(c, match.Course, in)
		}
		if c.Course != "" && hasShortcut(text) {
			return m.selectCourse(c, c.Course, in)
		}
		next := c
		next.State, next.LastIntent = AwaitingChoice, in
		return outcome{next: next, reply: "Okay " + c.Name + ", " + choicePrompt, intent: in}

	case intent.Reschedule:
		next := c
		next.State, next.LastIntent = AwaitingMode, in
		return outcome{
			next:   next,
			reply:  fmt.Sprintf("Okay %s, would you like your rescheduled counseling session for %s to be %s", c.Name, courseOr(c.Course), modeQuestion),
			intent: in,
		}

	case intent.HelpChoose:
		return m.suggestCourses(ctx, c, in)

	case intent.AvailableCourses:
		return m.listCourses(ctx, c, in)

	case intent.CourseDetails:
		return m.courseDetails(ctx, c, text, in)
	}
	return m.generic(ctx, c, text)
}

func (m *Machine) awaitingChoice(ctx context.Context, c Context, text string, in intent.Intent) outcome {
	if match := m.d.Resolver.Resolve(text, ""); match.Fresh {
		return m.selectCourse(c, match.Course, intent.Schedule)
	}
	switch {
	case in == intent.HelpChoose:
		return m.suggestCourses(ctx, c, in)
	case in == intent.AvailableCourses:
		out := m.listCourses(ctx, c, in)
		out.next.State = AwaitingChoice
		return out
	case c.Course != "" && hasShortcut(text):
		return m.selectCourse(c, c.Course, intent.Schedule)
	case in == intent.Reschedule:
		c.State = Idle
		return m.idle(ctx, c, text, in)
	}
	return outcome{
		next:   c,
		reply:  "I didn't catch the course name. Could you say it again, like 'Data Science' or 'Python'?",
		intent: in,
		err:    domain.ErrInputUnrecognized,
	}
}

func (m *Machine) awaitingSuggestion(ctx context.Context, c Context, text string, in intent.Intent) outcome {
	if match := m.d.Resolver.Resolve(text, ""); match.Fresh {
		return m.selectCourse(c, match.Course, intent.Schedule)
	}
	if in == intent.Schedule {
		next := c
		next.State, next.LastIntent = AwaitingChoice, in
		return outcome{next: next, reply: "Okay " + c.Name + ", " + choicePrompt, intent: in}
	}
	c.State = Idle
	return m.idle(ctx, c, text, in)
}

func (m *Machine) awaitingMode(ctx context.Context, c Context, text string, in intent.Intent) outcome {
	lower := strings.ToLower(text)
	rescheduling := c.LastIntent == intent.Reschedule

	switch {
	case strings.Contains(lower, "offline"):
		next := c
		next.Mode, next.State = domain.ModeOffline, AwaitingScheduleInput
		verb := "schedule"
		if rescheduling {
			verb = "reschedule"
		}
		return outcome{
			next:   next,
			reply:  fmt.Sprintf("Okay %s, let's %s your offline counseling session at our office for %s. When are you free, %s?", c.Name, verb, courseOr(c.Course), timeExample),
			intent: in,
		}

	case strings.Contains(lower, "online"):
		next := c
		next.Mode = domain.ModeOnline
		if rescheduling {
			next.State = AwaitingScheduleInput
			return outcome{
				next:   next,
				reply:  fmt.Sprintf("Okay %s, let's reschedule your online counseling session for %s. When are you free, %s?", c.Name, courseOr(c.Course), timeExample),
				intent: in,
			}
		}
		return m.counselOnline(ctx, next, in)
	}

	if match := m.d.Resolver.Resolve(text, ""); match.Fresh && match.Course != c.Course {
		return m.selectCourse(c, match.Course, c.LastIntent)
	}
	return outcome{
		next:   c,
		reply:  "I didn't catch if you want online or offline counseling. Could you say 'online' or 'offline'?",
		intent: in,
		err:    domain.ErrInputUnrecognized,
	}
}

func (m *Machine) awaitingSchedule(ctx context.Context, c Context, text string, in intent.Intent) outcome {
	statement, err := m.findStatement(ctx, text)
	if err != nil {
		if in != intent.Unknown {
			c.State = Idle
			return m.idle(ctx, c, text, in)
		}
		return outcome{
			next:   c,
			reply:  "I didn't catch the date and time. Could you say it again, " + timeExample + "?",
			intent: in,
			err:    err,
		}
	}
	return m.book(ctx, c, statement, in)
}

// findStatement turns the caller's words into a scheduling statement the
// extractor accepts: the text itself, its canonical rewrite, or a generated one.
func (m *Machine) findStatement(ctx context.Context, text string) (string, error) {
	if _, err := datetime.Extract(text); !errors.Is(err, domain.ErrNoDateTime) {
		return text, nil
	}
	if s, ok := datetime.Canonicalize(text, m.d.Now()); ok {
		return s, nil
	}
	if m.d.Dialogue == nil {
		return "", domain.ErrNoDateTime
	}

	prompt := fmt.Sprintf("Today is %s. The caller was asked when they are free for a counseling session and said: %q. "+
		"If that names a date and a time, reply only with: scheduled for YYYY-MM-DD at HH:MM. Otherwise reply only with: none.",
		m.d.Now().Format("2006-01-02"), text)
	reply, err := m.d.Dialogue.SendTurn(ctx, prompt)
	if err != nil {
		m.logger.Warn("Generated date lookup failed", zap.Error(err))
		return "", domain.ErrNoDateTime
	}
	if _, err := datetime.Extract(reply); errors.Is(err, domain.ErrNoDateTime) {
		return "", domain.ErrNoDateTime
	}
	return reply, nil
}

// book persists the slot named by statement, moving the latest session when
// the caller is rescheduling.
func (m *Machine) book(ctx context.Context, c Context, statement string, in intent.Intent) outcome {
	req := scheduler.Request{
		Employee: c.employee(),
		Mode:     c.mode(),
		Course:   m.courseFor(ctx, c.Course),
		Text:     statement,
	}

	var (
		b   scheduler.Booking
		err error
	)
	rescheduling := c.LastIntent == intent.Reschedule
	if rescheduling {
		b, err = m.d.Scheduler.Reschedule(ctx, req)
	} else {
		b, err = m.d.Scheduler.Book(ctx, req)
	}
	if err != nil {
		return outcome{next: c, reply: bookingFailure(err, rescheduling), intent: in, err: err}
	}

	next := c
	next.State = Idle
	next.Mode = b.Session.Mode
	if rescheduling {
		next.LastIntent = intent.Reschedule
	} else {
		next.LastIntent = intent.Schedule
	}
	return outcome{next: next, reply: b.Confirmation + " " + followUp, intent: in}
}

func (m *Machine) counselOnline(ctx context.Context, c Context, in intent.Intent) outcome {
	next := c
	next.State, next.LastIntent = Idle, intent.Schedule

	if m.d.Counselor != nil && c.Course != "" {
		crs, err := m.d.Courses.Course(ctx, c.Course)
		if err == nil {
			pitch, err := m.d.Counselor.Counsel(ctx, c.Name, *crs)
			if err == nil {
				return outcome{next: next, reply: pitch, intent: in}
			}
			m.logger.Warn("Online counseling failed, autoscheduling", zap.String("course", c.Course), zap.Error(err))
		} else {
			m.logger.Warn("Course missing for online counseling, autoscheduling", zap.String("course", c.Course), zap.Error(err))
		}
	}

	b, err := m.d.Scheduler.Autoschedule(ctx, c.employee(), m.courseFor(ctx, c.Course))
	if err != nil {
		if errors.Is(err, domain.ErrNoSlotAvailable) {
			return outcome{
				next:   next,
				reply:  fmt.Sprintf("Sorry, I couldn't run the online session and there's no open counseling slot in the coming weeks. Please contact HR at %s. %s", m.d.HRContact, followUp),
				intent: in,
				err:    err,
			}
		}
		return outcome{next: next, reply: "Sorry, I couldn't book your session due to a system error. Please try again.", intent: in, err: err}
	}
	next.Mode = domain.ModeOffline
	return outcome{
		next:   next,
		reply:  "I couldn't run the online session right now, so I booked an offline one for you. " + b.Confirmation + " " + followUp,
		intent: in,
	}
}

func (m *Machine) courseDetails(ctx context.Context, c Context, text string, in intent.Intent) outcome {
	name := m.d.Resolver.Resolve(text, c.Course).Course
	if name == "" {
		return outcome{
			next:   c,
			reply:  fmt.Sprintf("Okay %s, which course would you like to know about? We offer %s.", c.Name, joinNames(m.d.Resolver.Names())),
			intent: in,
		}
	}

	crs, err := m.d.Courses.Course(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return outcome{next: c, reply: "Sorry, I couldn't look up that course right now. " + followUp, intent: in, err: domain.Unavailable("find course", err)}
		}
		return outcome{
			next:   c,
			reply:  fmt.Sprintf("Okay %s, I couldn't find %s. We offer %s. Which one would you like to know about?", c.Name, name, joinNames(m.d.Resolver.Names())),
			intent: in,
			err:    err,
		}
	}

	next := c
	next.Course, next.State, next.LastIntent = crs.Name, AwaitingMode, in
	return outcome{
		next: next,
		reply: fmt.Sprintf("Okay %s, the %s course includes %s It lasts %s, costs %s, and covers: %s. Would you like this counseling session to be %s",
			c.Name, crs.Name, crs.Description, crs.Duration, crs.FeeText(), crs.Content, modeQuestion),
		intent: in,
	}
}

func (m *Machine) suggestCourses(ctx context.Context, c Context, in intent.Intent) outcome {
	courses, err := m.d.Store.ListCourses(ctx)
	if err != nil {
		return outcome{next: c, reply: "Sorry, I couldn't load our courses right now. " + followUp, intent: in, err: domain.Unavailable("list courses", err)}
	}
	next := c
	next.LastIntent = in
	if len(courses) == 0 {
		next.State = Idle
		return outcome{next: next, reply: "No courses are available right now. Would you like to schedule a counseling session anyway?", intent: in}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Okay %s, here are the courses we offer.", c.Name)
	for _, crs := range courses {
		fmt.Fprintf(&b, " %s: %s Duration: %s, Fees: %s, Covers: %s.", crs.Name, crs.Description, crs.Duration, crs.FeeText(), crs.Content)
	}
	b.WriteString(" Would you like to schedule a counseling session to discuss these, or pick one now?")
	next.State = AwaitingCourseSuggestion
	return outcome{next: next, reply: b.String(), intent: in}
}

func (m *Machine) listCourses(ctx context.Context, c Context, in intent.Intent) outcome {
	courses, err := m.d.Store.ListCourses(ctx)
	if err != nil {
		return outcome{next: c, reply: "Sorry, I couldn't load our courses right now. " + followUp, intent: in, err: domain.Unavailable("list courses", err)}
	}
	names := make([]string, len(courses))
	for i, crs := range courses {
		names[i] = crs.Name
	}
	next := c
	next.LastIntent = in
	if len(names) == 0 {
		return outcome{next: next, reply: "No courses are available right now. " + followUp, intent: in}
	}
	return outcome{next: next, reply: fmt.Sprintf("Thanks, %s! We offer %s. Want details on any of these?", c.Name, joinNames(names)), intent: in}
}

// generic hands unmatched turns to the generative collaborator. A generated
// reply that states a booking is acted on.
func (m *Machine) generic(ctx context.Context, c Context, text string) outcome {
	if m.d.Dialogue == nil {
		next, reply := miss(c)
		return outcome{next: next, reply: reply, intent: intent.Unknown, err: domain.ErrInputUnrecognized, missed: true}
	}

	reply, err := m.d.Dialogue.SendTurn(ctx, m.dialoguePrompt(ctx, c, text))
	if err != nil {
		next, fallback := miss(c)
		return outcome{next: next, reply: fallback, intent: intent.Unknown, err: err, missed: true}
	}

	if _, err := datetime.Extract(reply); !errors.Is(err, domain.ErrNoDateTime) {
		if strings.Contains(strings.ToLower(reply), "rescheduled") {
			c.LastIntent = intent.Reschedule
		}
		return m.book(ctx, c, reply, intent.Unknown)
	}

	next := c
	next.LastIntent = intent.Unknown
	if !strings.HasSuffix(reply, followUp) {
		reply += " " + followUp
	}
	return outcome{next: next, reply: reply, intent: intent.Unknown}
}

func (m *Machine) dialoguePrompt(ctx context.Context, c Context, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The employee's name is %s. ", c.Name)
	if existing, err := m.d.Store.LatestSession(ctx, c.EmployeeID); err == nil {
		fmt.Fprintf(&b, "They have a %s counseling session on %s at %s. ", existing.Mode, existing.Date, existing.Time)
	} else if !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("Failed to load session for prompt", zap.Error(err))
	}
	if c.Course != "" {
		fmt.Fprintf(&b, "They have selected the %s course. ", c.Course)
	}
	b.WriteString("Respond concisely. If they agree on a date and time, confirm it as a scheduling statement.\n")
	b.WriteString("Employee: ")
	b.WriteString(text)
	return b.String()
}

func (m *Machine) selectCourse(c Context, name string, in intent.Intent) outcome {
	next := c
	next.Course, next.State = name, AwaitingMode
	if in != "" {
		next.LastIntent = in
	}
	lead := "would you like this counseling session"
	if next.LastIntent == intent.Reschedule {
		lead = "would you like your rescheduled counseling session"
	}
	return outcome{
		next:   next,
		reply:  fmt.Sprintf("Okay %s, %s for %s to be %s", c.Name, lead, name, modeQuestion),
		intent: in,
	}
}

func (m *Machine) courseFor(ctx context.Context, name string) *domain.Course {
	if name == "" {
		return nil
	}
	crs, err := m.d.Courses.Course(ctx, name)
	if err != nil {
		m.logger.Debug("Booking without stored course", zap.String("course", name), zap.Error(err))
		return &domain.Course{Name: name}
	}
	return crs
}

func bookingFailure(err error, rescheduling bool) string {
	var conflict *domain.SlotConflictError
	switch {
	case errors.As(err, &conflict):
		if conflict.Suggestion != nil {
			return fmt.Sprintf("That time slot is taken. The next open slot is %s. Please choose another date or time, %s.", conflict.Suggestion, timeExample)
		}
		return "That time slot is taken. Please choose another date or time, " + timeExample + "."
	case errors.Is(err, domain.ErrNoDateTime):
		return "I didn't catch the date and time. Could you say it again, " + timeExample + "?"
	case errors.Is(err, domain.ErrDateFormat), errors.Is(err, domain.ErrValidation):
		return "Invalid date format. Please say it again, " + timeExample + "."
	case errors.Is(err, domain.ErrTimeFormat):
		return "Invalid time format. Please say it again, like 11:00 AM."
	case rescheduling:
		return "Sorry, I couldn't reschedule your session due to a system error. Please try again."
	default:
		return "Sorry, I couldn't book your session due to a system error. Please try again."
	}
}

func hasShortcut(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range strings.Split(bookShortcuts, "|") {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func courseOr(name string) string {
	if name == "" {
		return "your course"
	}
	return name
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}
