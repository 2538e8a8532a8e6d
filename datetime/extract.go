// Package datetime pulls a session date and time out of free text.
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/room4-2/FrontDesk/domain"
)

var statementPattern = regexp.MustCompile(
	`(?i)(?:rescheduled|scheduled|booked|set)\s*(?:for|on|at|to)?\s*(\d{4}-\d{2}-\d{2})\s*(?:at)?\s*(\d{1,2}:\d{2}(?:\s*(?:AM|PM))?)`)

var meridiemPattern = regexp.MustCompile(`(?i)\s*(AM|PM)$`)

// Extract finds a scheduling statement such as "scheduled for 2025-05-15 at
// 11:00 AM" and returns the normalized slot with a 24-hour time.
//
// Years before domain.MinSessionYear are rewritten to that year; no other field
// is corrected. Errors wrap domain.ErrNoDateTime, domain.ErrDateFormat or
// domain.ErrTimeFormat.
func Extract(text string) (domain.Slot, error) {
	m := statementPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.Slot{}, domain.ErrNoDateTime
	}
	date, err := normalizeDate(m[1])
	if err != nil {
		return domain.Slot{}, err
	}
	clock, err := normalizeTime(m[2])
	if err != nil {
		return domain.Slot{}, err
	}
	return domain.Slot{Date: date, Time: clock}, nil
}

func normalizeDate(raw string) (string, error) {
	year, err := strconv.Atoi(raw[:4])
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrDateFormat, raw)
	}
	if year < domain.MinSessionYear {
		raw = strconv.Itoa(domain.MinSessionYear) + raw[4:]
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrDateFormat, raw)
	}
	return raw, nil
}

func normalizeTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if mm := meridiemPattern.FindStringSubmatch(raw); mm != nil {
		clock := strings.TrimSpace(raw[:len(raw)-len(mm[0])]) + " " + strings.ToUpper(mm[1])
		t, err := time.Parse("3:04 PM", clock)
		if err != nil {
			return "", fmt.Errorf("%w: %q", domain.ErrTimeFormat, raw)
		}
		return t.Format("15:04"), nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrTimeFormat, raw)
	}
	return t.Format("15:04"), nil
}
