package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterPushAndTextfile(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.IncRunOutcome("failed")

	textfile := filepath.Join(t.TempDir(), "recreate_skps.prom")
	e := &Exporter{
		Gatherer:       reg,
		PushgatewayURL: srv.URL,
		Job:            "recreate_skps",
		Textfile:       textfile,
		Grouping:       map[string]string{"builder": "Housekeeper-Weekly-RecreateSKPs"},
	}
	require.NoError(t, e.Export(t.Context()))

	mu.Lock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/recreate_skps/builder/Housekeeper-Weekly-RecreateSKPs", path)
	assert.NotEmpty(t, body)
	mu.Unlock()

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `recreate_skps_run_outcomes_total{outcome="failed"} 1`), string(data))
}

func TestExporterJoinsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRunOutcome("success")
	e := &Exporter{
		Gatherer:       reg,
		PushgatewayURL: srv.URL,
		Job:            "recreate_skps",
		Textfile:       filepath.Join(t.TempDir(), "missing-dir", "out.prom"),
	}
	err := e.Export(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
	assert.Contains(t, err.Error(), "textfile")
}

func TestExporterNothingConfigured(t *testing.T) {
	e := &Exporter{Gatherer: prom.NewRegistry()}
	assert.NoError(t, e.Export(t.Context()))
}
