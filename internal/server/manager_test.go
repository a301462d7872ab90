package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/delegator/testutil"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_runs_total", Help: "runs"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_runs_total 1")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}

func newTestManager() *Manager {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	return NewManager(Handler(prometheus.NewRegistry()), cfg, zap.NewNop())
}

func TestManager_StartAndShutdown(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	testutil.AssertEventuallyTrue(t, func() bool {
		resp, err := http.Get("http://" + m.Addr() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())

	// 第二次关闭无副作用
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_DoubleStart(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestManager_StartAfterShutdown(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestManager_AddrBeforeStart(t *testing.T) {
	m := NewManager(http.NewServeMux(), Config{Addr: ":9999"}, nil)
	assert.Equal(t, ":9999", m.Addr())
	assert.True(t, m.IsRunning())

	select {
	case <-m.Errors():
		t.Fatal("unexpected server error")
	default:
	}
}
