package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/repository/memory"
	"github.com/jolyonbrown/ronclanker/internal/telemetry"
)

func newTestServer(t *testing.T, store *memory.Store) *Server {
	t.Helper()
	return NewServer(DefaultServerConfig(), store.Decisions(), nil, telemetry.NewRegistry(), zerolog.Nop())
}

func TestHealthzOK(t *testing.T) {
	s := newTestServer(t, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestLatestDecision_NotFoundBeforeFirstRun(t *testing.T) {
	s := newTestServer(t, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decision/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestDecision_ReturnsEmitted(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Decisions().Save(context.Background(), domain.Decision{
		Gameweek:            12,
		CaptainID:           101,
		ViceID:              202,
		ExpectedTotalPoints: 61.5,
		ProducedAt:          time.Now(),
	}))
	s := newTestServer(t, store)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decision/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var decision domain.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, 12, decision.Gameweek)
	assert.Equal(t, 101, decision.CaptainID)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ronclanker_prediction_gaps_total")
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
