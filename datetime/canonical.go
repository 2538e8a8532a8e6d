package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// The trailing class stops the hour from eating the first digits of a year.
const clockExpr = `(?:at\s+)?(\d{1,2})(?:[:.](\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?(?:\D|$)`

var (
	monthDayPattern = regexp.MustCompile(`(?i)\b(` + monthAlternation() + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?(?:\s+(\d{4}))?,?\s+` + clockExpr)
	isoPattern      = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}),?\s+` + clockExpr)
	relativePattern = regexp.MustCompile(`(?i)\b(today|tomorrow)\s+` + clockExpr)
)

func monthAlternation() string {
	// Longest names first so "september" is not cut to "sep".
	names := []string{
		"january", "february", "march", "april", "june", "july", "august",
		"september", "october", "november", "december",
		"sept", "jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec",
	}
	return strings.Join(names, "|")
}

// Canonicalize rewrites a spoken date phrase such as "May 15 2025 at 11am" into
// the statement form Extract understands ("scheduled for 2025-05-15 at 11:00
// AM"). A missing year takes now's year. It reports false when the text holds
// no date with a time.
func Canonicalize(text string, now time.Time) (string, bool) {
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		month := months[strings.ToLower(m[1])]
		date := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
		return statement(date, m[4], m[5], m[6]), true
	}
	if m := isoPattern.FindStringSubmatch(text); m != nil {
		return statement(m[1], m[2], m[3], m[4]), true
	}
	if m := relativePattern.FindStringSubmatch(text); m != nil {
		day := now
		if strings.EqualFold(m[1], "tomorrow") {
			day = now.AddDate(0, 0, 1)
		}
		return statement(day.Format("2006-01-02"), m[2], m[3], m[4]), true
	}
	return "", false
}

func statement(date, hour, minute, meridiem string) string {
	if minute == "" {
		minute = "00"
	}
	h, _ := strconv.Atoi(hour)
	clock := fmt.Sprintf("%02d:%s", h, minute)
	if meridiem != "" {
		m := strings.ToUpper(strings.ReplaceAll(meridiem, ".", ""))
		clock += " " + m
	}
	return "scheduled for " + date + " at " + clock
}
