package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waterlogd/waterlog/internal/stats"
	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/internal/types"
	"github.com/waterlogd/waterlog/pkg/config"
)

// memStore is an in-memory ReadingStore for handler tests
type memStore struct {
	mu       sync.Mutex
	seq      int
	readings []types.Reading
}

func (m *memStore) AddReading(_ context.Context, r *types.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		m.seq++
		r.ID = fmt.Sprintf("mem-%d", m.seq)
	}
	m.readings = append(m.readings, *r)
	return nil
}

func (m *memStore) UpdateReading(_ context.Context, r *types.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.readings {
		if m.readings[i].ID == r.ID {
			m.readings[i] = *r
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteReading(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.readings {
		if m.readings[i].ID == id {
			m.readings = append(m.readings[:i], m.readings[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) GetReading(_ context.Context, id string) (*types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.readings {
		if m.readings[i].ID == id {
			r := m.readings[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListReadings(_ context.Context) ([]types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Reading, len(m.readings))
	copy(out, m.readings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *memStore) LatestReading(_ context.Context) (*types.Reading, error) {
	all, _ := m.ListReadings(context.Background())
	if len(all) == 0 {
		return nil, store.ErrNotFound
	}
	r := all[len(all)-1]
	return &r, nil
}

func (m *memStore) Close() error { return nil }

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, existing ...types.Reading) (*httptest.Server, *memStore, string) {
	t.Helper()

	ms := &memStore{readings: existing}

	ctrl, err := NewController(context.Background(), &sync.WaitGroup{},
		config.HTTPData{ListenAddr: ":0"},
		config.AuthData{AdminPassword: "hunter2"},
		ms, zap.NewNop().Sugar())
	require.NoError(t, err)
	ctrl.now = func() time.Time { return testNow }

	srv := httptest.NewServer(ctrl.Server.Handler)
	t.Cleanup(srv.Close)

	// Log in once for the authenticated tests
	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"password":"hunter2"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	return srv, ms, login.Token
}

func doJSON(t *testing.T, method, url, token string, body string) *http.Response {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"password":"wrong"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReadingsRequireAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/readings")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp2 := doJSON(t, "GET", srv.URL+"/api/readings", "not-a-session", "")
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestHealthIsUnauthenticated(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndListReadings(t *testing.T) {
	srv, ms, token := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/readings", token,
		`{"value": 123.456, "timestamp": "2024-06-01T00:00:00Z", "confidence": "high", "notes": "manual"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created types.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 123.456, created.Value)
	assert.Equal(t, types.ConfidenceHigh, created.Confidence)

	listResp := doJSON(t, "GET", srv.URL+"/api/readings", token, "")
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list readingsResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)
	require.Len(t, ms.readings, 1)
}

func TestCreateReadingDefaultsTimestampToNow(t *testing.T) {
	srv, ms, token := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/readings", token, `{"value": 10}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, ms.readings, 1)
	assert.True(t, ms.readings[0].Timestamp.Equal(testNow))
}

func TestCreateReadingValidation(t *testing.T) {
	existing := types.Reading{
		ID:        "r1",
		Timestamp: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Value:     100,
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing value", `{"notes": "oops"}`, http.StatusBadRequest},
		{"negative value", `{"value": -1}`, http.StatusBadRequest},
		{"malformed JSON", `{"value": `, http.StatusBadRequest},
		{"below latest reading", `{"value": 99.5, "timestamp": "2024-06-01T00:00:00Z"}`, http.StatusUnprocessableEntity},
		{"above a later reading", `{"value": 150, "timestamp": "2024-04-01T00:00:00Z"}`, http.StatusUnprocessableEntity},
		{"valid increase", `{"value": 101, "timestamp": "2024-06-01T00:00:00Z"}`, http.StatusCreated},
		{"valid historical backfill", `{"value": 90, "timestamp": "2024-04-01T00:00:00Z"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, token := newTestServer(t, existing)

			resp := doJSON(t, "POST", srv.URL+"/api/readings", token, tt.body)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGetReading(t *testing.T) {
	existing := types.Reading{
		ID:        "r1",
		Timestamp: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Value:     100,
		Notes:     "manual",
	}
	srv, _, token := newTestServer(t, existing)

	resp := doJSON(t, "GET", srv.URL+"/api/readings/r1", token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, 100.0, got.Value)
	assert.Equal(t, "manual", got.Notes)

	missing := doJSON(t, "GET", srv.URL+"/api/readings/nope", token, "")
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUpdateAndDeleteReading(t *testing.T) {
	existing := types.Reading{
		ID:        "r1",
		Timestamp: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Value:     100,
	}
	srv, ms, token := newTestServer(t, existing)

	resp := doJSON(t, "PUT", srv.URL+"/api/readings/r1", token,
		`{"value": 101, "timestamp": "2024-05-01T00:00:00Z"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 101.0, ms.readings[0].Value)

	missing := doJSON(t, "PUT", srv.URL+"/api/readings/nope", token, `{"value": 5}`)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	del := doJSON(t, "DELETE", srv.URL+"/api/readings/r1", token, "")
	defer del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
	assert.Empty(t, ms.readings)

	delAgain := doJSON(t, "DELETE", srv.URL+"/api/readings/r1", token, "")
	defer delAgain.Body.Close()
	assert.Equal(t, http.StatusNotFound, delAgain.StatusCode)
}

func TestGetStats(t *testing.T) {
	srv, _, token := newTestServer(t,
		types.Reading{ID: "a", Timestamp: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		types.Reading{ID: "b", Timestamp: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Value: 103},
	)

	resp := doJSON(t, "GET", srv.URL+"/api/stats", token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result stats.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.True(t, result.LastInterval.Available)
	assert.Equal(t, 31.0, result.LastInterval.Days)
	assert.Equal(t, 3000.0, result.LastInterval.Liters)
	assert.Equal(t, 96.8, result.LastInterval.LitersPerDay)
	assert.Len(t, result.MonthlyData, 12)
	assert.Len(t, result.WeeklyData, 52)
}

func TestGetProjection(t *testing.T) {
	srv, _, token := newTestServer(t,
		types.Reading{ID: "a", Timestamp: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		types.Reading{ID: "b", Timestamp: time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC), Value: 110},
	)

	resp := doJSON(t, "GET", srv.URL+"/api/stats/projection", token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var projection stats.Projection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projection))
	assert.True(t, projection.Available)
	assert.Greater(t, projection.ProjectedLiters, 0.0)
}
