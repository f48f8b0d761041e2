package restserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/waterlogd/waterlog/internal/stats"
	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/internal/types"
	"github.com/waterlogd/waterlog/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetHealth reports service liveness and the stored reading count
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	readings, err := h.controller.store.ListReadings(req.Context())
	if err != nil {
		h.sendError(w, req, http.StatusServiceUnavailable, "store unavailable", err)
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, healthResponse{
		Status:   "ok",
		Readings: len(readings),
	})
}

// Login validates the admin password and issues a session token
func (h *Handlers) Login(w http.ResponseWriter, req *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, req, http.StatusBadRequest, "invalid JSON payload", err)
		return
	}

	if !h.controller.checkPassword(request.Password) {
		h.sendError(w, req, http.StatusUnauthorized, "invalid password", nil)
		return
	}

	token := h.controller.sessions.issue(h.controller.now())
	h.formatter.WriteResponse(w, req, http.StatusOK, loginResponse{Token: token})
}

// ListReadings returns all stored readings in chronological order
func (h *Handlers) ListReadings(w http.ResponseWriter, req *http.Request) {
	readings, err := h.controller.store.ListReadings(req.Context())
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to list readings", err)
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, readingsResponse{
		Readings: readings,
		Count:    len(readings),
	})
}

// CreateReading stores a new reading. A reading whose value breaks the
// meter's monotonically-increasing sequence is rejected; the stats
// engine itself does not validate, so ingestion is where this check
// lives.
func (h *Handlers) CreateReading(w http.ResponseWriter, req *http.Request) {
	reading, ok := h.decodeReading(w, req, "")
	if !ok {
		return
	}

	if msg := h.checkMonotonic(req, reading); msg != "" {
		h.sendError(w, req, http.StatusUnprocessableEntity, msg, nil)
		return
	}

	if err := h.controller.store.AddReading(req.Context(), &reading); err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to store reading", err)
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusCreated, reading)
}

// GetReading returns a single stored reading by id
func (h *Handlers) GetReading(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	reading, err := h.controller.store.GetReading(req.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(w, req, http.StatusNotFound, "reading not found", nil)
		return
	}
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to fetch reading", err)
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, reading)
}

// UpdateReading replaces a stored reading
func (h *Handlers) UpdateReading(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	reading, ok := h.decodeReading(w, req, id)
	if !ok {
		return
	}

	if msg := h.checkMonotonic(req, reading); msg != "" {
		h.sendError(w, req, http.StatusUnprocessableEntity, msg, nil)
		return
	}

	err := h.controller.store.UpdateReading(req.Context(), &reading)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(w, req, http.StatusNotFound, "reading not found", nil)
		return
	}
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to update reading", err)
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, reading)
}

// DeleteReading removes a stored reading
func (h *Handlers) DeleteReading(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	err := h.controller.store.DeleteReading(req.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(w, req, http.StatusNotFound, "reading not found", nil)
		return
	}
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to delete reading", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats runs the aggregation engine over the stored readings
func (h *Handlers) GetStats(w http.ResponseWriter, req *http.Request) {
	readings, err := h.controller.store.ListReadings(req.Context())
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to list readings", err)
		return
	}

	result := stats.Compute(readings, h.controller.now())
	h.formatter.WriteResponse(w, req, http.StatusOK, result)
}

// GetProjection returns the year-end consumption projection
func (h *Handlers) GetProjection(w http.ResponseWriter, req *http.Request) {
	readings, err := h.controller.store.ListReadings(req.Context())
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "failed to list readings", err)
		return
	}

	projection := stats.ProjectYearEnd(readings, h.controller.now())
	h.formatter.WriteResponse(w, req, http.StatusOK, projection)
}

// decodeReading parses and validates a reading payload
func (h *Handlers) decodeReading(w http.ResponseWriter, req *http.Request, id string) (types.Reading, bool) {
	var request readingRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, req, http.StatusBadRequest, "invalid JSON payload", err)
		return types.Reading{}, false
	}

	if request.Value == nil {
		h.sendError(w, req, http.StatusBadRequest, "value is required", nil)
		return types.Reading{}, false
	}
	if *request.Value < 0 {
		h.sendError(w, req, http.StatusBadRequest, "value must be non-negative", nil)
		return types.Reading{}, false
	}

	return request.toReading(id, h.controller.now()), true
}

// checkMonotonic returns a rejection message when reading's value would
// break the cumulative counter sequence relative to its chronological
// neighbors, or "" when it fits. The reading being updated is excluded
// from the comparison.
func (h *Handlers) checkMonotonic(req *http.Request, reading types.Reading) string {
	// Creating a reading at the head of the series, the common case,
	// only needs the newest stored reading. Backfills and updates fall
	// through to the full scan.
	if reading.ID == "" {
		latest, err := h.controller.store.LatestReading(req.Context())
		if errors.Is(err, store.ErrNotFound) {
			return ""
		}
		if err == nil && !latest.Timestamp.After(reading.Timestamp) {
			if latest.Value > reading.Value {
				return "value is below an earlier reading; cumulative meter totals must not decrease"
			}
			return ""
		}
	}

	existing, err := h.controller.store.ListReadings(req.Context())
	if err != nil {
		// The store error will surface on the write that follows.
		return ""
	}

	for _, other := range existing {
		if other.ID == reading.ID {
			continue
		}
		if !other.Timestamp.After(reading.Timestamp) && other.Value > reading.Value {
			return "value is below an earlier reading; cumulative meter totals must not decrease"
		}
		if other.Timestamp.After(reading.Timestamp) && other.Value < reading.Value {
			return "value is above a later reading; cumulative meter totals must not decrease"
		}
	}

	return ""
}

func (h *Handlers) sendError(w http.ResponseWriter, req *http.Request, status int, message string, err error) {
	if err != nil {
		h.controller.logger.Errorf("%s: %v", message, err)
	}
	h.formatter.WriteError(w, req, status, message)
}
