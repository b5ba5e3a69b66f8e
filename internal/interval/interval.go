// Package interval computes next-run timestamps for recurring schedules.
package interval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/draftcue/draftcue/pkg/types"
)

// ErrUnknownFrequency is returned for descriptors the calculator does not
// recognize. The caller decides the fallback; the scheduler logs and
// deactivates the schedule.
var ErrUnknownFrequency = errors.New("unknown frequency")

// Next returns the first run after now for the given frequency, anchored at
// start. The anchor's minute/second phase survives arbitrarily long catch-up
// gaps: fixed periods advance by an elapsed-period count computed with
// integer division, never by stepping one period at a time.
//
// The "once" descriptor is not a recurrence and is rejected here; the
// scheduler deactivates one-shot schedules instead of advancing them.
func Next(freq types.Frequency, start, now time.Time) (time.Time, error) {
	switch {
	case freq == types.FreqHourly:
		return nextFixed(start, now, time.Hour), nil
	case freq == types.FreqDaily:
		return nextFixed(start, now, 24*time.Hour), nil
	case freq == types.FreqWeekly:
		return nextCalendar(start, now, addWeeks, 7), nil
	case freq == types.FreqMonthly:
		return nextCalendar(start, now, addMonths, 31), nil
	case strings.HasPrefix(string(freq), types.FreqEveryPrefix):
		secs, err := strconv.Atoi(strings.TrimPrefix(string(freq), types.FreqEveryPrefix))
		if err != nil || secs <= 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
		}
		return nextFixed(start, now, time.Duration(secs)*time.Second), nil
	case strings.HasPrefix(string(freq), types.FreqCronPrefix):
		return nextCron(strings.TrimPrefix(string(freq), types.FreqCronPrefix), start, now)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
}

// nextFixed advances start past now in whole periods. The elapsed-period
// count is (now-start)/period via integer division, so the result is
// start + (count+1)*period and the anchor's sub-period offset is exact no
// matter how many periods were missed.
func nextFixed(start, now time.Time, period time.Duration) time.Time {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	count := elapsed / period
	return start.Add(time.Duration(count+1) * period)
}

func addWeeks(t time.Time, n int) time.Time  { return t.AddDate(0, 0, 7*n) }
func addMonths(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }

// nextCalendar advances start past now using calendar arithmetic, keeping
// the anchor's time-of-day. The elapsed unit count is first estimated from
// the day gap with maxUnitDays as the divisor, which never overshoots, and
// then corrected with a handful of single steps. Catch-up cost stays small
// no matter how large the gap is.
func nextCalendar(start, now time.Time, add func(time.Time, int) time.Time, maxUnitDays int) time.Time {
	if !start.Before(now) {
		return add(start, 1)
	}

	days := int(now.Sub(start).Hours() / 24)
	n := days / maxUnitDays
	candidate := add(start, n)
	for !candidate.After(now) {
		n++
		candidate = add(start, n)
	}
	return candidate
}

// nextCron delegates to the cron parser. Cron expressions define their own
// phase, so the anchor only matters when it is still in the future.
func nextCron(expr string, start, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cron %q: %v", ErrUnknownFrequency, expr, err)
	}
	ref := now
	if start.After(now) {
		ref = start
	}
	return sched.Next(ref), nil
}
