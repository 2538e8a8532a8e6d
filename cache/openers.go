// Package cache shortcuts zero-context openers and memoizes course lookups.
package cache

import (
	"strings"

	"github.com/room4-2/FrontDesk/intent"
)

// Opener is a canned reply for an exact opening phrase.
type Opener struct {
	Phrase   string
	Template string
	Intent   intent.Intent
	// BookNow skips course selection and goes straight to asking for a time.
	BookNow bool
}

// Render fills the {name} placeholder.
func (o Opener) Render(name string) string {
	return strings.ReplaceAll(o.Template, "{name}", name)
}

var openers = map[string]Opener{
	"schedule counseling": {
		Template: "Thanks, {name}! Do you have a course in mind, or would you like help choosing one?",
		Intent:   intent.Schedule,
	},
	"reschedule counseling": {
		Template: "Thanks, {name}! When would you like to move your counseling session to?",
		Intent:   intent.Reschedule,
	},
	"course details": {
		Template: "Thanks, {name}! Which course would you like to know about, like Python or Java?",
		Intent:   intent.CourseDetails,
	},
	"available courses": {
		Template: "Thanks, {name}! We offer Python, Java, Data Science, and Web Development. Want details on any of these?",
		Intent:   intent.AvailableCourses,
	},
	"just schedule": {
		Template: "Thanks, {name}! Let's book your counseling session. When are you free, like May 15, 2025 at 11 AM?",
		Intent:   intent.Schedule,
		BookNow:  true,
	},
}

// LookupOpener returns the canned reply for transcript when it is exactly one
// of the known openers after normalization.
func LookupOpener(transcript string) (Opener, bool) {
	key := strings.TrimRight(intent.Normalize(transcript), ".!?")
	o, ok := openers[key]
	if ok {
		o.Phrase = key
	}
	return o, ok
}
