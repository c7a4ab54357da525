package observability

import (
	"errors"
	"flowtagger/internal/config"
	"flowtagger/internal/model"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromMetrics_Counters(t *testing.T) {
	m := NewPromMetrics(config.MetricsConfig{})

	m.RecordProcessed(true)
	m.RecordProcessed(true)
	m.RecordProcessed(false)
	m.RecordSkipped(&model.RecordError{Err: model.ErrUnknownProtocol})
	m.RecordSkipped(&model.RecordError{Err: model.ErrMalformedRecord})
	m.RecordSkipped(&model.RecordError{Err: model.ErrMalformedRecord})
	m.SetLookupEntries(12)
	m.ObserveRun(1500*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("tagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.records.WithLabelValues("untagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("unknown_protocol")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues("malformed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.lookupEntries))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.duration))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess), 0.0)
	assert.Zero(t, testutil.ToFloat64(m.lastFailure))
}

func TestPromMetrics_ObserveFailure(t *testing.T) {
	m := NewPromMetrics(config.MetricsConfig{})
	m.ObserveRun(time.Second, errors.New("boom"))
	assert.Greater(t, testutil.ToFloat64(m.lastFailure), 0.0)
	assert.Zero(t, testutil.ToFloat64(m.lastSuccess))
}

func TestPromMetrics_ExportTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowtagger.prom")
	m := NewPromMetrics(config.MetricsConfig{TextfilePath: path})
	m.RecordProcessed(false)

	require.NoError(t, m.Export())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `flowtagger_records_total{result="untagged"} 1`)
}

func TestPromMetrics_ExportPushgateway(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewPromMetrics(config.MetricsConfig{PushgatewayURL: srv.URL, Job: "audit"})
	m.SetLookupEntries(3)

	require.NoError(t, m.Export())
	assert.Equal(t, "/metrics/job/audit", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestNew_Disabled(t *testing.T) {
	r := New(config.MetricsConfig{Enabled: false})
	_, ok := r.(Nop)
	assert.True(t, ok)
	assert.NoError(t, r.Export())
}
