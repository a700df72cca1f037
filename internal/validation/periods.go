package validation

import (
	"fmt"
	"time"
)

// Period is one slot of the coverage grid: [Start, End], both inclusive,
// truncated to whole days.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Contains reports whether d falls inside the period, comparing dates only.
func (p Period) Contains(d time.Time) bool {
	day := truncateDay(d)
	return !day.Before(p.Start) && !day.After(p.End)
}

// BuildPeriods partitions [start, end] into contiguous periods of the
// nominal length in days. Periods are ascending, non-overlapping, and cover
// the range exactly; the final period is truncated so its end equals end.
// An empty range or non-positive length yields no periods.
func BuildPeriods(start, end time.Time, lengthDays int) []Period {
	if lengthDays <= 0 {
		return nil
	}
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil
	}

	var periods []Period
	for cur := start; !cur.After(end); {
		pEnd := cur.AddDate(0, 0, lengthDays-1)
		if pEnd.After(end) {
			pEnd = end
		}
		periods = append(periods, Period{Start: cur, End: pEnd})
		cur = pEnd.AddDate(0, 0, 1)
	}
	return periods
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
