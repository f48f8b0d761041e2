// Package types contains data structures shared across waterlog packages.
package types

import "time"

// Confidence is an informational quality tag attached to a reading by
// whatever produced it (manual entry, vision extraction, meter push).
// It is carried through storage and the API but plays no part in the
// aggregation math.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Reading is a single cumulative meter observation: the total shown on
// the meter at a point in time, in cubic meters. Readings are immutable
// once created; corrections are made by replacing the stored row.
type Reading struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Value      float64           `json:"value"` // cumulative total, m³
	Confidence Confidence        `json:"confidence,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Image      string            `json:"image,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
