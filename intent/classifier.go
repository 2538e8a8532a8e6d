// Package intent maps a caller's transcript to a coarse intent.
//
// Classification walks an ordered table and returns the first intent with a
// keyword contained in the transcript. Order decides ties between overlapping
// keyword sets: "reschedule" is listed before "schedule" because every
// reschedule request also contains the word schedule.
package intent

import "strings"

// Intent is the coarse purpose of an utterance.
type Intent string

const (
	Schedule         Intent = "schedule"
	Reschedule       Intent = "reschedule"
	CourseDetails    Intent = "course_details"
	AvailableCourses Intent = "available_courses"
	HelpChoose       Intent = "help_choose"
	HRLogin          Intent = "hr_login"
	Logout           Intent = "logout"
	ViewInteractions Intent = "view_interactions"
	StatusReport     Intent = "status_report"
	UpdateCourse     Intent = "update_course"
	Unknown          Intent = "unknown"
)

// Privileged reports whether the intent is only reachable after HR login.
func (i Intent) Privileged() bool {
	switch i {
	case Logout, ViewInteractions, StatusReport, UpdateCourse:
		return true
	}
	return false
}

// Rule binds an intent to the keywords that trigger it.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// Table is the ordered rule set used by Classify.
var Table = []Rule{
	{HRLogin, []string{"hr login"}},
	{Logout, []string{"logout", "log out"}},
	{ViewInteractions, []string{"view interactions", "show interactions"}},
	{StatusReport, []string{"status report"}},
	{UpdateCourse, []string{"update course"}},
	{Reschedule, []string{"reschedule", "change my session", "move my session"}},
	{HelpChoose, []string{"help choosing", "help me choose", "suggest courses", "suggest a course", "need counseling", "which course should"}},
	{AvailableCourses, []string{"available courses", "what courses", "which courses", "list courses", "courses do you offer", "courses you offer"}},
	{Schedule, []string{"schedule", "book", "admission", "enroll", "counseling", "appointment"}},
	{CourseDetails, []string{"course details", "details", "course", "python", "java", "data science", "web development", "fees", "duration"}},
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New returns a classifier over rules, evaluated in the given order.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier over Table.
func Default() *Classifier {
	return New(Table)
}

// Classify returns the first intent whose keyword appears in transcript.
// The transcript is normalized here, so callers may pass raw text.
func (c *Classifier) Classify(transcript string) Intent {
	t := Normalize(transcript)
	if t == "" {
		return Unknown
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(t, kw) {
				return r.Intent
			}
		}
	}
	return Unknown
}

// Classify runs the default table.
func Classify(transcript string) Intent {
	return Default().Classify(transcript)
}

// Normalize lowercases, trims and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
