package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/timer"
)

func TestTimer_StartAndStatus(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	resp := ts.api.Get("/api/v1/timer", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, timer.StateIdle, decode[timer.Status](t, resp.Body.Bytes()).Data.State)

	resp = ts.api.Post("/api/v1/timer", authHeader, map[string]any{"durationMillis": 90_000})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	status := decode[timer.Status](t, resp.Body.Bytes()).Data
	assert.Equal(t, timer.StateRunning, status.State)
	assert.Equal(t, int64(90_000), status.DurationMillis)
	assert.Equal(t, "00:01:30", status.Readout)

	ts.clock.Advance(30 * time.Second)

	resp = ts.api.Get("/api/v1/timer", authHeader)
	status = decode[timer.Status](t, resp.Body.Bytes()).Data
	assert.Equal(t, timer.StateRunning, status.State)
	assert.Equal(t, int64(60_000), status.RemainingMillis)
	assert.Equal(t, "00:01:00", status.Readout)
}

func TestTimer_RejectsNonPositiveDuration(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	for _, d := range []int64{0, -1000} {
		resp := ts.api.Post("/api/v1/timer", authHeader, map[string]any{"durationMillis": d})
		requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)
	}
}

func TestTimer_Cancel(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	resp := ts.api.Delete("/api/v1/timer", authHeader)
	requireError(t, resp, http.StatusConflict, domainerrors.CodeConflict)

	resp = ts.api.Post("/api/v1/timer", authHeader, map[string]any{"durationMillis": 10_000})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/api/v1/timer", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, timer.StateStopped, decode[timer.Status](t, resp.Body.Bytes()).Data.State)

	// A cancelled countdown never finishes.
	ts.clock.Advance(time.Minute)
	resp = ts.api.Get("/api/v1/timer", authHeader)
	assert.Equal(t, timer.StateStopped, decode[timer.Status](t, resp.Body.Bytes()).Data.State)
	assert.Empty(t, ts.center.Active())
}

func TestTimer_FinishThenStopSound(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	resp := ts.api.Post("/api/v1/timer/stop-sound", authHeader)
	requireError(t, resp, http.StatusConflict, domainerrors.CodeConflict)

	resp = ts.api.Post("/api/v1/timer", authHeader, map[string]any{"durationMillis": 3_000})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	ts.clock.Advance(3 * time.Second)

	resp = ts.api.Get("/api/v1/timer", authHeader)
	status := decode[timer.Status](t, resp.Body.Bytes()).Data
	assert.Equal(t, timer.StateFinished, status.State)
	assert.Equal(t, int64(0), status.RemainingMillis)
	assert.Equal(t, timer.SoundAlarm, status.SoundKind)

	var finished bool
	for _, n := range ts.center.Active() {
		if n.Channel == notify.ChannelTimer && n.Priority == notify.PriorityHigh {
			finished = true
		}
	}
	assert.True(t, finished, "finished notification posted")

	resp = ts.api.Post("/api/v1/timer/stop-sound", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, timer.StateTerminated, decode[timer.Status](t, resp.Body.Bytes()).Data.State)
	assert.Empty(t, ts.center.Active())
}

func TestTimer_AlertTimesOut(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	resp := ts.api.Post("/api/v1/timer", authHeader, map[string]any{"durationMillis": 1_000})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	ts.clock.Advance(time.Second + timer.DefaultConfig().AlertTimeout)

	resp = ts.api.Get("/api/v1/timer", authHeader)
	assert.Equal(t, timer.StateTerminated, decode[timer.Status](t, resp.Body.Bytes()).Data.State)
}

func TestTimer_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/timer", map[string]any{"durationMillis": 1_000})
	requireError(t, resp, http.StatusUnauthorized, domainerrors.CodeUnauthorized)
}
