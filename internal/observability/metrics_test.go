package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveFetch(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveFetch("success", 200*time.Millisecond)
	m.ObserveFetch("success", 100*time.Millisecond)
	m.ObserveFetch("timeout", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestMetrics_ObserveRunAndAge(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveRun("periodic", "skipped")
	m.ObserveSnapshotAge(90 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshRuns.WithLabelValues("periodic", "skipped")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.SnapshotAge))
}

func TestNewLogger_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestParseLevel_Defaults(t *testing.T) {
	assert.Equal(t, "INFO", parseLevel("").String())
	assert.Equal(t, "DEBUG", parseLevel("DEBUG").String())
	assert.Equal(t, "INFO", parseLevel("loud").String())
}
