package core

import (
	"strconv"
	"strings"
	"time"
)

var (
	timedLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", time.RFC3339}
	dateLayouts  = []string{"2006-01-02"}
)

// ParseDue reads a due date typed by a user. It accepts an ISO date
// ("2025-03-10"), a date and time ("2025-03-10 15:04"), RFC 3339, or a
// relative day ("today", "tomorrow", "+3d"), optionally followed by a clock
// time ("tomorrow 09:30"). hasTime reports whether a time of day was given.
func ParseDue(input string, now time.Time) (due time.Time, hasTime bool, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false, &ValidationError{Field: "due_date", Reason: "must not be empty"}
	}
	loc := now.Location()

	for _, layout := range timedLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc).Truncate(time.Minute), true, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}

	day, clock, _ := strings.Cut(strings.ToLower(s), " ")
	base, ok := relativeDay(day, now)
	if !ok {
		return time.Time{}, false, &ValidationError{Field: "due_date", Reason: "must look like 2006-01-02, 2006-01-02 15:04, today, tomorrow or +Nd"}
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return base, false, nil
	}
	tod, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, false, &ValidationError{Field: "due_time", Reason: "must be HH:MM"}
	}
	return base.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute), true, nil
}

func relativeDay(word string, now time.Time) (time.Time, bool) {
	today := startOfToday(now)
	switch word {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	}
	if strings.HasPrefix(word, "+") && strings.HasSuffix(word, "d") {
		n, err := strconv.Atoi(word[1 : len(word)-1])
		if err == nil && n >= 0 {
			return today.AddDate(0, 0, n), true
		}
	}
	return time.Time{}, false
}

func startOfToday(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
