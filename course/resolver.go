// Package course resolves a caller's spoken course reference to a canonical
// catalog name.
package course

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the score a match must exceed to replace prior context.
const DefaultThreshold = 80

// Entry maps a spoken keyword to a canonical course name.
type Entry struct {
	Keyword   string
	Canonical string
}

// Catalog is the fixed keyword table.
var Catalog = []Entry{
	{"python", "Python Programming"},
	{"java", "Java Development"},
	{"javascript", "Web Development"},
	{"data science", "Data Science"},
	{"machine learning", "Data Science"},
	{"web development", "Web Development"},
}

// Match is the outcome of a resolution.
type Match struct {
	Course string
	// Score is the similarity of the best keyword, 0-100.
	Score int
	// Fresh is true when Course came from the transcript, false when it was
	// carried over from prior context.
	Fresh bool
}

// Found reports whether any course was resolved.
func (m Match) Found() bool {
	return m.Course != ""
}

// Resolver performs fuzzy keyword matching over a catalog.
type Resolver struct {
	entries   []Entry
	threshold int
}

// NewResolver returns a resolver over entries. A threshold of zero uses DefaultThreshold.
func NewResolver(entries []Entry, threshold int) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{entries: entries, threshold: threshold}
}

// Default returns a resolver over Catalog.
func Default() *Resolver {
	return NewResolver(Catalog, DefaultThreshold)
}

// Resolve matches transcript against the catalog. When the best score does not
// exceed the threshold the prior course is returned unchanged.
func (r *Resolver) Resolve(transcript, prior string) Match {
	words := tokenize(transcript)
	best := Match{}
	bestLen := 0
	for _, e := range r.entries {
		score := similarity(words, e.Keyword)
		// Equal scores go to the longer keyword so "javascript" beats "java".
		if score > best.Score || (score == best.Score && len(e.Keyword) > bestLen) {
			best = Match{Course: e.Canonical, Score: score, Fresh: true}
			bestLen = len(e.Keyword)
		}
	}
	if best.Score > r.threshold {
		return best
	}
	return Match{Course: prior, Score: best.Score}
}

// Names returns the distinct canonical names in catalog order.
func (r *Resolver) Names() []string {
	seen := make(map[string]bool, len(r.entries))
	var names []string
	for _, e := range r.entries {
		if !seen[e.Canonical] {
			seen[e.Canonical] = true
			names = append(names, e.Canonical)
		}
	}
	return names
}

// similarity scores keyword against the transcript words. A containment hit
// scores 100; otherwise every window of as many words as the keyword has is
// compared by normalized edit distance.
func similarity(words []string, keyword string) int {
	if len(words) == 0 {
		return 0
	}
	joined := strings.Join(words, " ")
	if strings.Contains(joined, keyword) {
		return 100
	}
	n := len(strings.Fields(keyword))
	best := 0
	for i := 0; i+n <= len(words); i++ {
		window := strings.Join(words[i:i+n], " ")
		if s := ratio(window, keyword); s > best {
			best = s
		}
	}
	return best
}

func ratio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (longest - d) / longest
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
