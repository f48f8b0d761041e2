package stats

import (
	"time"

	"github.com/waterlogd/waterlog/internal/types"
)

const (
	monthlyBucketCount = 12
	weeklyBucketCount  = 52

	monthLabelLayout = "Jan 2006"
	weekLabelLayout  = "2006-01-02"
)

// bucket is one window of a trailing series. Start and End are both
// inclusive instants; End of a calendar month is the last nanosecond
// before the next month begins, so a reading falling exactly on a month
// boundary belongs to the later month.
type bucket struct {
	Start time.Time
	End   time.Time
	Label string
}

// aggregateBuckets computes a per-bucket daily rate by bracketing: the
// latest reading at or before the bucket start and the latest reading at
// or before the bucket end. When no reading lands inside the bucket, the
// end bracket falls back to the first reading after the bucket start, so
// a smoothed rate reaches every bucket inside the span of two readings
// however far apart they are. Sparse readings therefore produce runs of
// adjacent buckets carrying the same rate; buckets that start before the
// first reading or after the last one have no data.
func aggregateBuckets(sorted []types.Reading, buckets []bucket) []BucketStats {
	out := make([]BucketStats, 0, len(buckets))

	for _, b := range buckets {
		entry := BucketStats{Label: b.Label}

		before := lastAtOrBefore(sorted, b.Start)
		through := lastAtOrBefore(sorted, b.End)
		if through <= before {
			through = firstAfter(sorted, b.Start)
		}

		if before >= 0 && through > before {
			days := daysBetween(sorted[before].Timestamp, sorted[through].Timestamp)
			if days > 0 {
				entry.HasData = true
				entry.LitersPerDay = round1((sorted[through].Value - sorted[before].Value) * LitersPerCubicMeter / days)
			}
		}

		out = append(out, entry)
	}

	return out
}

// monthBuckets returns the trailing calendar months ending with now's
// month, oldest first.
func monthBuckets(now time.Time) []bucket {
	buckets := make([]bucket, 0, monthlyBucketCount)
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for i := monthlyBucketCount - 1; i >= 0; i-- {
		start := currentMonth.AddDate(0, -i, 0)
		buckets = append(buckets, bucket{
			Start: start,
			End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
			Label: start.Format(monthLabelLayout),
		})
	}

	return buckets
}

// weekBuckets returns trailing 7×24h windows counting back from now,
// oldest first. Unlike months these are exact durations, not calendar
// weeks, so the newest bucket always ends at now.
func weekBuckets(now time.Time) []bucket {
	buckets := make([]bucket, 0, weeklyBucketCount)

	for i := weeklyBucketCount - 1; i >= 0; i-- {
		end := now.Add(-time.Duration(i) * 7 * 24 * time.Hour)
		start := end.Add(-7 * 24 * time.Hour)
		buckets = append(buckets, bucket{
			Start: start,
			End:   end,
			Label: start.Format(weekLabelLayout),
		})
	}

	return buckets
}
