package restserver

import (
	"time"

	"github.com/waterlogd/waterlog/internal/types"
)

// loginRequest is the POST /api/login payload
type loginRequest struct {
	Password string `json:"password"`
}

// loginResponse carries the issued session token
type loginResponse struct {
	Token string `json:"token"`
}

// readingRequest is the create/update payload for a reading. Timestamp
// defaults to the time of submission when omitted.
type readingRequest struct {
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
	Value      *float64          `json:"value"`
	Confidence string            `json:"confidence,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Image      string            `json:"image,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (r *readingRequest) toReading(id string, now time.Time) types.Reading {
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return types.Reading{
		ID:         id,
		Timestamp:  ts,
		Value:      *r.Value,
		Confidence: types.Confidence(r.Confidence),
		Notes:      r.Notes,
		Image:      r.Image,
		Attributes: r.Attributes,
	}
}

// readingsResponse wraps the reading list
type readingsResponse struct {
	Readings []types.Reading `json:"readings"`
	Count    int             `json:"count"`
}

// healthResponse is the GET /api/health payload
type healthResponse struct {
	Status   string `json:"status"`
	Readings int    `json:"readings"`
}
