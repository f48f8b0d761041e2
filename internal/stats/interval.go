package stats

import (
	"github.com/waterlogd/waterlog/internal/types"
)

// lastInterval computes the rate across the most recent gap between two
// readings. With fewer than two readings the interval is unavailable.
// Two readings sharing a timestamp yield a rate of 0 rather than a
// division error.
func lastInterval(sorted []types.Reading) IntervalStats {
	if len(sorted) < 2 {
		return IntervalStats{}
	}

	prev := sorted[len(sorted)-2]
	last := sorted[len(sorted)-1]

	days := daysBetween(prev.Timestamp, last.Timestamp)
	liters := (last.Value - prev.Value) * LitersPerCubicMeter

	var rate float64
	if days > 0 {
		rate = liters / days
	}

	return IntervalStats{
		Available:    true,
		Days:         round1(days),
		Liters:       round1(liters),
		LitersPerDay: round1(rate),
		From:         prev.Timestamp,
		To:           last.Timestamp,
	}
}
