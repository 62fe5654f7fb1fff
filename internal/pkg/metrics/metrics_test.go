package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveBuild(t *testing.T) {
	c := NewCollector()

	c.ObserveBuild(4, 10, 5*time.Millisecond, nil)
	c.ObserveBuild(1, 0, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.buildsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.buildsTotal.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.patterns))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.states))
	assert.Equal(t, 1, testutil.CollectAndCount(c.buildDuration))
}

func TestCollector_ObserveScanAndReload(t *testing.T) {
	c := NewCollector()

	c.ObserveScan(6, 3)
	c.ObserveScan(4, 0)
	c.ObserveReload(nil)
	c.ObserveReload(errors.New("bad line"))
	c.ObserveReload(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.scansTotal))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.scannedRunes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.matchesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.reloadsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reloadsTotal.WithLabelValues("error")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveScan(6, 3)

	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ackit_matches_total 3")
	assert.Contains(t, string(body), "go_goroutines")

	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "OK", strings.TrimSpace(string(body)))
}

func TestCollector_ServeStopsOnCancel(t *testing.T) {
	c := NewCollector()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.serve(ctx, listener) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCollector_ServeBadAddress(t *testing.T) {
	c := NewCollector()
	err := c.Serve(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
