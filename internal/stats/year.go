package stats

import (
	"math"
	"time"

	"github.com/waterlogd/waterlog/internal/types"
)

// yearToDate computes average consumption between the first and last
// reading of now's calendar year. Only the endpoints of the span matter;
// intermediate readings do not contribute. Fewer than two qualifying
// readings leave the stats unavailable.
func yearToDate(sorted []types.Reading, now time.Time) YearStats {
	yearStart := startOfYear(now)

	// First reading at or after January 1st. The list is sorted, so
	// everything from here on qualifies.
	firstIdx := len(sorted)
	for i, r := range sorted {
		if !r.Timestamp.Before(yearStart) {
			firstIdx = i
			break
		}
	}

	if len(sorted)-firstIdx < 2 {
		return YearStats{}
	}

	first := sorted[firstIdx]
	last := sorted[len(sorted)-1]

	days := daysBetween(first.Timestamp, last.Timestamp)
	liters := (last.Value - first.Value) * LitersPerCubicMeter

	var rate float64
	if days > 0 {
		rate = liters / days
	}

	return YearStats{
		Available:    true,
		Days:         int(math.Round(days)),
		Liters:       math.Round(liters),
		LitersPerDay: round1(rate),
	}
}

func startOfYear(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}
