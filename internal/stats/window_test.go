package stats

import (
	"testing"
	"time"

	"github.com/waterlogd/waterlog/internal/types"
)

func TestMonthBucketsOrderingAndLabels(t *testing.T) {
	buckets := monthBuckets(day(2024, time.June, 15))

	if len(buckets) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(buckets))
	}
	if buckets[0].Label != "Jul 2023" {
		t.Errorf("oldest bucket label = %s, want Jul 2023", buckets[0].Label)
	}
	if buckets[11].Label != "Jun 2024" {
		t.Errorf("newest bucket label = %s, want Jun 2024", buckets[11].Label)
	}

	for i := 1; i < len(buckets); i++ {
		if !buckets[i].Start.After(buckets[i-1].Start) {
			t.Fatalf("buckets not ordered oldest to newest at index %d", i)
		}
		// Each month ends just before the next begins.
		if !buckets[i-1].End.Add(time.Nanosecond).Equal(buckets[i].Start) {
			t.Fatalf("gap between bucket %d and %d", i-1, i)
		}
	}
}

func TestWeekBucketsSpanExactSevenDays(t *testing.T) {
	now := day(2024, time.June, 15)
	buckets := weekBuckets(now)

	if len(buckets) != 52 {
		t.Fatalf("expected 52 buckets, got %d", len(buckets))
	}
	if !buckets[51].End.Equal(now) {
		t.Errorf("newest bucket must end at now, got %v", buckets[51].End)
	}
	for i, b := range buckets {
		if b.End.Sub(b.Start) != 7*24*time.Hour {
			t.Fatalf("bucket %d spans %v, want 168h", i, b.End.Sub(b.Start))
		}
	}
}

func TestBracketingSpansSparseReadings(t *testing.T) {
	// One reading at each end of 2024: 365 m³ over 365 days. Every bucket
	// between the two readings carries the same smoothed 1000 L/day rate
	// even though only December physically contains a reading; the rate
	// is computed across the bracketing readings, not bucket boundaries.
	readings := []types.Reading{
		reading("a", day(2024, time.January, 1), 0),
		reading("b", day(2024, time.December, 31), 365),
	}
	now := day(2025, time.January, 1)

	result := Compute(readings, now)

	for _, b := range result.MonthlyData {
		if b.Label == "Jan 2025" {
			// Starts after the last reading, nothing to bracket.
			if b.HasData {
				t.Errorf("Jan 2025 = %+v, want no data", b)
			}
			continue
		}
		if !b.HasData || b.LitersPerDay != 1000.0 {
			t.Errorf("month %s = %+v, want 1000.0 L/day", b.Label, b)
		}
	}

	// The oldest weekly bucket starts January 3rd, so all 52 weeks fall
	// inside the span and carry the rate too.
	for _, b := range result.WeeklyData {
		if !b.HasData || b.LitersPerDay != 1000.0 {
			t.Errorf("week %s = %+v, want 1000.0 L/day", b.Label, b)
		}
	}
}

func TestBracketingCoversEveryBucketWithDenseReadings(t *testing.T) {
	now := day(2025, time.January, 1)

	// Weekly cadence, 1 m³ per week, starting before the oldest bucket.
	var readings []types.Reading
	for i := 0; i <= 53; i++ {
		ts := now.Add(-time.Duration(53-i) * 7 * 24 * time.Hour)
		readings = append(readings, reading("r", ts, float64(i)))
	}

	result := Compute(readings, now)

	for _, b := range result.WeeklyData {
		if !b.HasData {
			t.Fatalf("weekly bucket %s has no data", b.Label)
		}
		if b.LitersPerDay != 142.9 {
			t.Fatalf("weekly bucket %s rate = %v, want 142.9", b.Label, b.LitersPerDay)
		}
	}
	for _, b := range result.MonthlyData {
		if !b.HasData {
			t.Fatalf("monthly bucket %s has no data", b.Label)
		}
	}
}

func TestBucketsWithoutBracketsHaveNoData(t *testing.T) {
	// A single reading inside the window: no bucket ever has both a
	// start bracket and a later end bracket.
	readings := []types.Reading{
		reading("a", day(2024, time.June, 1), 100),
	}

	result := Compute(readings, day(2024, time.June, 15))

	for _, b := range result.MonthlyData {
		if b.HasData {
			t.Errorf("monthly bucket %s should have no data", b.Label)
		}
	}
	for _, b := range result.WeeklyData {
		if b.HasData {
			t.Errorf("weekly bucket %s should have no data", b.Label)
		}
	}
}

func TestDuplicateTimestampBracketPicksLastInserted(t *testing.T) {
	ts := day(2024, time.March, 10)
	sorted := Normalize([]types.Reading{
		reading("base", day(2024, time.March, 1), 100),
		reading("dup-early", ts, 104),
		reading("dup-late", ts, 105),
		reading("end", day(2024, time.March, 20), 110),
	})

	buckets := []bucket{{
		Start: ts,
		End:   day(2024, time.March, 20),
		Label: "test",
	}}

	got := aggregateBuckets(sorted, buckets)

	// Start bracket resolves to the last-inserted duplicate (105), so the
	// bucket covers 5 m³ over the 10 days to the end reading.
	if !got[0].HasData {
		t.Fatal("bucket should have data")
	}
	if got[0].LitersPerDay != 500.0 {
		t.Errorf("rate = %v, want 500.0", got[0].LitersPerDay)
	}
}

func TestDuplicateTimestampEndBracketYieldsNoData(t *testing.T) {
	// The end bracket is a later entry in sort order but shares the start
	// bracket's timestamp: zero elapsed days, so the bucket stays empty
	// instead of dividing by zero.
	ts := day(2024, time.March, 10)
	sorted := Normalize([]types.Reading{
		reading("dup-early", ts, 104),
		reading("dup-late", ts, 105),
	})

	got := aggregateBuckets(sorted, []bucket{{
		Start: ts,
		End:   day(2024, time.March, 20),
		Label: "test",
	}})

	if got[0].HasData {
		t.Errorf("bucket = %+v, want no data", got[0])
	}
}
