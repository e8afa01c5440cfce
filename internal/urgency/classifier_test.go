package urgency

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compete-engine/internal/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestDaysUntil_Flooring(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"same instant", now, 0},
		{"23 hours ahead", now.Add(23 * time.Hour), 0},
		{"25 hours ahead", now.Add(25 * time.Hour), 1},
		{"exactly one day ahead", now.Add(24 * time.Hour), 1},
		{"2 days 23 hours ahead", now.Add(71 * time.Hour), 2},
		{"one second ago", now.Add(-time.Second), -1},
		{"one nanosecond ago", now.Add(-time.Nanosecond), -1},
		{"exactly one day ago", now.Add(-24 * time.Hour), -1},
		{"25 hours ago", now.Add(-25 * time.Hour), -2},
		{"half a day ahead", now.Add(12 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.start, now))
		})
	}
}

func TestDaysUntil_FarDatesDoNotSaturate(t *testing.T) {
	farFuture := now.AddDate(500, 0, 0)
	farPast := now.AddDate(-500, 0, 0)

	assert.Greater(t, DaysUntil(farFuture, now), 180000)
	assert.Less(t, DaysUntil(farPast, now), -180000)
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		wantTier Tier
		wantDays int
	}{
		{"due now", now, TierCritical, 0},
		{"a day in the past", now.Add(-24 * time.Hour), TierCritical, -1},
		{"2 days 23 hours left", now.Add(2*24*time.Hour + 23*time.Hour), TierUrgent, 2},
		{"exactly 1 day left", now.Add(24 * time.Hour), TierUrgent, 1},
		{"exactly 3 days left", now.Add(3 * 24 * time.Hour), TierOpen, 3},
		{"a month left", now.AddDate(0, 1, 0), TierOpen, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Classify(tt.start, false, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.Equal(t, tt.wantDays, res.DaysUntil)
		})
	}
}

func TestClassify_HiringOverridesEverything(t *testing.T) {
	for _, start := range []time.Time{now.AddDate(0, 0, 30), now, now.AddDate(0, 0, -3)} {
		res, err := Classify(start, true, now)
		require.NoError(t, err)
		assert.Equal(t, TierHiring, res.Tier)
	}
}

func TestClassify_HalfDayAheadEndsToday(t *testing.T) {
	res, err := Classify(now.Add(12*time.Hour), false, now)
	require.NoError(t, err)
	assert.Equal(t, Result{Tier: TierCritical, DaysUntil: 0, Label: "Ends Today"}, res)
}

func TestClassify_ZeroStartDateFails(t *testing.T) {
	_, err := Classify(time.Time{}, false, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))

	var classErr *ClassificationError
	assert.True(t, errors.As(err, &classErr))
}

func TestPolicy_CustomThresholds(t *testing.T) {
	p := Policy{CriticalBelow: 2, UrgentBelow: 10}

	res, err := p.Classify(now.Add(36*time.Hour), false, now)
	require.NoError(t, err)
	assert.Equal(t, TierCritical, res.Tier)

	res, err = p.Classify(now.AddDate(0, 0, 5), false, now)
	require.NoError(t, err)
	assert.Equal(t, TierUrgent, res.Tier)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Ended", Label(-4))
	assert.Equal(t, "Ends Today", Label(0))
	assert.Equal(t, "1 day left", Label(1))
	assert.Equal(t, "3 days left", Label(3))
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2026-03-12T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC), got)

	got, err = ParseTimestamp("2026-03-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseTimestamp("next tuesday")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)

	_, err = ParseTimestamp("   ")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestClassifyString(t *testing.T) {
	res, err := ClassifyString("2026-03-15T12:00:00Z", false, now)
	require.NoError(t, err)
	assert.Equal(t, TierOpen, res.Tier)
	assert.Equal(t, "5 days left", res.Label)

	_, err = ClassifyString("not-a-date", false, now)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestPanicRoom(t *testing.T) {
	comps := []models.Competition{
		{ID: "later", StartDate: now.AddDate(0, 0, 9)},
		{ID: "soon", StartDate: now.AddDate(0, 0, 2)},
		{ID: "undated"},
		{ID: "past", StartDate: now.AddDate(0, 0, -1)},
		{ID: "edge", StartDate: now.AddDate(0, 0, 5)},
	}

	got := PanicRoom(comps, now, DefaultPanicDays)
	require.Len(t, got, 2)
	assert.Equal(t, "soon", got[0].ID)
	assert.Equal(t, "past", got[1].ID)
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(now)
	assert.Equal(t, now, c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, now.Add(time.Hour), c.Now())

	c.Set(now)
	assert.Equal(t, now, c.Now())
}
