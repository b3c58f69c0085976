package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.FramesRead.Add(3)
	m.AlertsSent.Add(1)
	m.SetRunning(true)
	m.UpdateTickLatency(42 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "station_frames_read_total 3")
	assert.Contains(t, body, "station_alerts_sent_total 1")
	assert.Contains(t, body, "station_pipeline_running 1")
	assert.Contains(t, body, "station_tick_latency_ms 42")
}

func TestSetRunning_Toggles(t *testing.T) {
	m := New()
	m.SetRunning(true)
	m.SetRunning(false)
	assert.Equal(t, uint64(0), m.Running.Load())
}
