// Package stats derives consumption-rate statistics from a sparse series
// of cumulative meter readings. Every computation is a pure function of
// the reading list and an injected clock: callers pass "now" explicitly
// and get a fully-populated Result back, with fields degraded to
// unavailable/no-data when too few readings exist to compute them.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/waterlogd/waterlog/internal/types"
)

// LitersPerCubicMeter converts raw meter values (m³) to display liters.
const LitersPerCubicMeter = 1000.0

const hoursPerDay = 24.0

// IntervalStats describes the most recent gap between two readings.
// From/To are the unrounded boundary timestamps so the interval's
// endpoints round-trip exactly; the numeric fields are display-rounded.
type IntervalStats struct {
	Available    bool      `json:"available"`
	Days         float64   `json:"days,omitempty"`
	Liters       float64   `json:"liters,omitempty"`
	LitersPerDay float64   `json:"litersPerDay,omitempty"`
	From         time.Time `json:"from,omitempty"`
	To           time.Time `json:"to,omitempty"`
}

// YearStats describes consumption between the first and last reading of
// the current calendar year.
type YearStats struct {
	Available    bool    `json:"available"`
	Days         int     `json:"days,omitempty"`
	Liters       float64 `json:"liters,omitempty"`
	LitersPerDay float64 `json:"litersPerDay,omitempty"`
}

// BucketStats is one entry of a windowed series: a labeled time bucket
// that either carries an average daily rate or has no data.
type BucketStats struct {
	Label        string  `json:"label"`
	HasData      bool    `json:"hasData"`
	LitersPerDay float64 `json:"litersPerDay,omitempty"`
}

// Result is the complete statistics structure served to callers. It is
// recomputed from scratch on every call and never partially populated.
type Result struct {
	LastInterval IntervalStats `json:"lastInterval"`
	YearStats    YearStats     `json:"yearStats"`
	MonthlyData  []BucketStats `json:"monthlyData"`
	WeeklyData   []BucketStats `json:"weeklyData"`
}

// Compute derives the full statistics structure from readings as of now.
// The input may be unsorted, empty, or contain duplicate timestamps; it
// is never mutated.
func Compute(readings []types.Reading, now time.Time) Result {
	sorted := Normalize(readings)

	return Result{
		LastInterval: lastInterval(sorted),
		YearStats:    yearToDate(sorted, now),
		MonthlyData:  aggregateBuckets(sorted, monthBuckets(now)),
		WeeklyData:   aggregateBuckets(sorted, weekBuckets(now)),
	}
}

// Normalize returns a copy of readings sorted ascending by timestamp.
// The sort is stable, so readings sharing a timestamp keep their input
// order and the last-inserted one wins bracket lookups. No filtering or
// deduplication is performed.
func Normalize(readings []types.Reading) []types.Reading {
	sorted := make([]types.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// lastAtOrBefore returns the index of the last reading with a timestamp
// at or before t, or -1 if every reading is later.
func lastAtOrBefore(sorted []types.Reading, t time.Time) int {
	i := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Timestamp.After(t)
	})
	return i - 1
}

// firstAfter returns the index of the first reading with a timestamp
// strictly after t, or -1 if none is later.
func firstAfter(sorted []types.Reading, t time.Time) int {
	i := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Timestamp.After(t)
	})
	if i == len(sorted) {
		return -1
	}
	return i
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / hoursPerDay
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
