package interval

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcue/draftcue/pkg/types"
)

func TestNext_Hourly(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 17, 42, 0, time.UTC)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	next, err := Next(types.FreqHourly, start, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 17, 42, 0, time.UTC), next)
}

func TestNext_Hourly_PreservesPhaseAcrossLongGap(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 17, 42, 0, time.UTC)
	// 200 missed hourly periods.
	now := start.Add(200*time.Hour + 31*time.Minute)

	next, err := Next(types.FreqHourly, start, now)
	require.NoError(t, err)
	assert.Equal(t, 17, next.Minute())
	assert.Equal(t, 42, next.Second())
	assert.True(t, next.After(now))
	assert.True(t, next.Sub(now) <= time.Hour)
}

func TestNext_Daily_CatchUp120Periods(t *testing.T) {
	start := time.Date(2025, 10, 1, 6, 5, 9, 0, time.UTC)
	now := start.Add(120*24*time.Hour + 3*time.Hour)

	next, err := Next(types.FreqDaily, start, now)
	require.NoError(t, err)
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 5, next.Minute())
	assert.Equal(t, 9, next.Second())
	assert.True(t, next.After(now))
}

func TestNext_FixedOnExactBoundaryIsStrictlyLater(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(3 * time.Hour) // exactly on a period boundary

	next, err := Next(types.FreqHourly, start, now)
	require.NoError(t, err)
	assert.Equal(t, start.Add(4*time.Hour), next)
}

func TestNext_StartInFuture(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	next, err := Next(types.FreqHourly, start, now)
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour), next)
}

func TestNext_Weekly(t *testing.T) {
	start := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC) // a Monday
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	next, err := Next(types.FreqWeekly, start, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 7, 30, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestNext_Monthly_PreservesTimeOfDay(t *testing.T) {
	start := time.Date(2025, 5, 10, 22, 45, 30, 0, time.UTC)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	next, err := Next(types.FreqMonthly, start, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 22, 45, 30, 0, time.UTC), next)
}

func TestNext_Monthly_VeryLongGap(t *testing.T) {
	start := time.Date(2016, 1, 10, 4, 15, 0, 0, time.UTC)
	now := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	next, err := Next(types.FreqMonthly, start, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 4, 15, 0, 0, time.UTC), next)
}

func TestNext_EverySeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 13, 0, time.UTC)
	now := start.Add(1000 * time.Second)

	next, err := Next(types.Frequency("every:90"), start, now)
	require.NoError(t, err)
	assert.Equal(t, 13, next.Second())
	assert.True(t, next.After(now))
	assert.True(t, next.Sub(now) <= 90*time.Second)
}

func TestNext_EveryInvalidSeconds(t *testing.T) {
	_, err := Next(types.Frequency("every:zero"), time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrUnknownFrequency)

	_, err = Next(types.Frequency("every:-5"), time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrUnknownFrequency)
}

func TestNext_Cron(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 10, 12, 0, 0, time.UTC)

	next, err := Next(types.Frequency("cron:30 * * * *"), start, now)
	require.NoError(t, err)
	assert.Equal(t, 30, next.Minute())
	assert.True(t, next.After(now))
}

func TestNext_CronInvalid(t *testing.T) {
	_, err := Next(types.Frequency("cron:not a cron"), time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrUnknownFrequency)
}

func TestNext_UnknownDescriptor(t *testing.T) {
	_, err := Next(types.Frequency("fortnightly"), time.Now(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFrequency))
}

func TestNext_OnceIsNotARecurrence(t *testing.T) {
	_, err := Next(types.FreqOnce, time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrUnknownFrequency)
}
