// Package rules evaluates advanced schedule constraints: arbitrary
// time-window conditions combined under all/any semantics, plus a bounded
// forward search for the next matching timestamp.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/draftcue/draftcue/pkg/types"
)

// ErrNoMatchingWindow is returned when the forward search exhausts its
// horizon without finding a matching timestamp.
var ErrNoMatchingWindow = errors.New("no matching window within search horizon")

// DefaultHorizonDays bounds the forward search when the caller passes zero.
const DefaultHorizonDays = 60

// Sanitize normalizes arbitrary rule input into a well-formed RuleSet.
// Unknown modes fall back to "all", and conditions that cannot be
// interpreted are dropped. Empty or nil input yields {all, []}, which
// matches every timestamp.
func Sanitize(raw *types.RuleSet) types.RuleSet {
	out := types.RuleSet{Mode: types.RuleModeAll}
	if raw == nil {
		return out
	}

	if types.RuleMode(strings.ToLower(string(raw.Mode))) == types.RuleModeAny {
		out.Mode = types.RuleModeAny
	}

	for _, c := range raw.Conditions {
		if sc, ok := sanitizeCondition(c); ok {
			out.Conditions = append(out.Conditions, sc)
		}
	}
	return out
}

func sanitizeCondition(c types.Condition) (types.Condition, bool) {
	switch c.Kind {
	case types.CondTimeBetween:
		if _, err := parseMinutes(c.Start); err != nil {
			return types.Condition{}, false
		}
		if _, err := parseMinutes(c.End); err != nil {
			return types.Condition{}, false
		}
		return types.Condition{Kind: c.Kind, Start: c.Start, End: c.End}, true

	case types.CondDaysOfWeek:
		var days []string
		for _, d := range c.Days {
			if _, ok := parseWeekday(d); ok {
				days = append(days, strings.ToLower(strings.TrimSpace(d)))
			}
		}
		if len(days) == 0 {
			return types.Condition{}, false
		}
		return types.Condition{Kind: c.Kind, Days: days}, true

	case types.CondExcludeMonthDays:
		var days []int
		for _, d := range c.MonthDays {
			if d >= 1 && d <= 31 {
				days = append(days, d)
			}
		}
		if len(days) == 0 {
			return types.Condition{}, false
		}
		return types.Condition{Kind: c.Kind, MonthDays: days}, true

	default:
		return types.Condition{}, false
	}
}

// Matches reports whether the timestamp satisfies the rule set. Under "all"
// every condition must independently match; under "any" at least one must.
// An empty condition list matches everything under "all" and nothing under
// "any".
func Matches(rs types.RuleSet, t time.Time) bool {
	if rs.Mode == types.RuleModeAny {
		for _, c := range rs.Conditions {
			if conditionMatches(c, t) {
				return true
			}
		}
		return false
	}

	for _, c := range rs.Conditions {
		if !conditionMatches(c, t) {
			return false
		}
	}
	return true
}

// NextMatch searches forward from start, at minute granularity, for the
// first timestamp the rule set matches. The search is bounded by
// horizonDays (DefaultHorizonDays when zero) and never loops unbounded.
func NextMatch(rs types.RuleSet, start time.Time, horizonDays int) (time.Time, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	candidate := start.Truncate(time.Minute)
	if candidate.Before(start) {
		candidate = candidate.Add(time.Minute)
	}

	limit := start.AddDate(0, 0, horizonDays)
	for !candidate.After(limit) {
		if Matches(rs, candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("%w: searched %d days from %s", ErrNoMatchingWindow, horizonDays, start.Format(time.RFC3339))
}

func conditionMatches(c types.Condition, t time.Time) bool {
	switch c.Kind {
	case types.CondTimeBetween:
		return timeBetweenMatches(c.Start, c.End, t)
	case types.CondDaysOfWeek:
		weekday := strings.ToLower(t.Weekday().String())
		for _, d := range c.Days {
			if strings.ToLower(strings.TrimSpace(d)) == weekday {
				return true
			}
		}
		return false
	case types.CondExcludeMonthDays:
		// Negative filter: matches unless the day-of-month is listed.
		for _, d := range c.MonthDays {
			if t.Day() == d {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// timeBetweenMatches checks the half-open window [start, end) against the
// timestamp's time-of-day, handling windows that cross midnight.
func timeBetweenMatches(start, end string, t time.Time) bool {
	startMin, err := parseMinutes(start)
	if err != nil {
		return false
	}
	endMin, err := parseMinutes(end)
	if err != nil {
		return false
	}

	m := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return m >= startMin && m < endMin
	}
	// Crossing midnight, e.g. 22:00-06:00.
	return m >= startMin || m < endMin
}

// parseMinutes parses an "HH:MM" string into minutes since midnight.
func parseMinutes(hhmm string) (int, error) {
	hhmm = strings.TrimSpace(hhmm)
	colonIdx := strings.IndexByte(hhmm, ':')
	if colonIdx < 0 {
		return 0, fmt.Errorf("invalid time format %q: missing colon", hhmm)
	}

	hour, err := strconv.Atoi(hhmm[:colonIdx])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(hhmm[colonIdx+1:])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return hour*60 + minute, nil
}

func parseWeekday(raw string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return time.Sunday, false
	}
}
