package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildPeriodsPartitionsExactly(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		length     int
	}{
		{"weekly even", day(2024, 1, 1), day(2024, 1, 28), 7},
		{"weekly truncated tail", day(2024, 1, 1), day(2024, 1, 31), 7},
		{"daily", day(2024, 1, 1), day(2024, 1, 5), 1},
		{"single oversized period", day(2024, 1, 1), day(2024, 1, 10), 30},
		{"monthly over leap february", day(2024, 2, 1), day(2024, 4, 15), 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			periods := BuildPeriods(tc.start, tc.end, tc.length)
			require.NotEmpty(t, periods)

			assert.Equal(t, tc.start, periods[0].Start)
			assert.Equal(t, tc.end, periods[len(periods)-1].End)
			for i, p := range periods {
				assert.False(t, p.End.Before(p.Start))
				if i > 0 {
					// contiguous, no gap, no overlap
					assert.Equal(t, periods[i-1].End.AddDate(0, 0, 1), p.Start)
				}
				if i < len(periods)-1 {
					assert.Equal(t, tc.length, int(p.End.Sub(p.Start).Hours()/24)+1)
				}
			}
		})
	}
}

func TestBuildPeriodsDegenerate(t *testing.T) {
	assert.Empty(t, BuildPeriods(day(2024, 1, 10), day(2024, 1, 1), 7))
	assert.Empty(t, BuildPeriods(day(2024, 1, 1), day(2024, 1, 10), 0))

	periods := BuildPeriods(day(2024, 1, 5), day(2024, 1, 5), 7)
	require.Len(t, periods, 1)
	assert.Equal(t, periods[0].Start, periods[0].End)
}

func TestPeriodContains(t *testing.T) {
	p := Period{Start: day(2024, 1, 1), End: day(2024, 1, 7)}
	assert.True(t, p.Contains(day(2024, 1, 1)))
	assert.True(t, p.Contains(day(2024, 1, 7)))
	assert.True(t, p.Contains(time.Date(2024, 1, 7, 23, 30, 0, 0, time.UTC)))
	assert.False(t, p.Contains(day(2024, 1, 8)))
	assert.False(t, p.Contains(day(2023, 12, 31)))
}
