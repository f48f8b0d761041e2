package stats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/waterlogd/waterlog/internal/types"
)

// Projection estimates total consumption for now's calendar year by
// fitting a least-squares line through the year's readings and
// extrapolating it to December 31st.
type Projection struct {
	Available       bool    `json:"available"`
	ProjectedLiters float64 `json:"projectedLiters,omitempty"`
	LitersPerDay    float64 `json:"litersPerDay,omitempty"`
}

// ProjectYearEnd fits the current year's readings and extrapolates to
// year end. Fewer than two qualifying readings, or readings that all
// share one timestamp, leave the projection unavailable.
func ProjectYearEnd(readings []types.Reading, now time.Time) Projection {
	sorted := Normalize(readings)
	yearStart := startOfYear(now)

	var xs, ys []float64
	for _, r := range sorted {
		if r.Timestamp.Before(yearStart) {
			continue
		}
		xs = append(xs, daysBetween(yearStart, r.Timestamp))
		ys = append(ys, r.Value)
	}

	if len(xs) < 2 || xs[0] == xs[len(xs)-1] {
		return Projection{}
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return Projection{}
	}

	yearDays := daysBetween(yearStart, yearStart.AddDate(1, 0, 0))
	rate := slope * LitersPerCubicMeter

	return Projection{
		Available:       true,
		ProjectedLiters: math.Round(rate * yearDays),
		LitersPerDay:    round1(rate),
	}
}
