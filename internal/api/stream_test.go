package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_RejectsMissingToken(t *testing.T) {
	ts := setupTestServer(t)

	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_DeliversDocumentChanges(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)
	token := strings.TrimPrefix(authHeader, "Authorization: Bearer ")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.sseManager.Start(ctx)

	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/stream?token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// The store subscription starts asynchronously; keep writing until one lands.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if line == "event: document.changed" {
				return
			}
		case <-tick.C:
			ts.createBook(t, authHeader, "Dune", "want_to_read")
		case <-deadline:
			t.Fatal("no document.changed event received")
		}
	}
}
