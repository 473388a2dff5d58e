package prom

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/filesort"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	s, err := filesort.New(filesort.Memory(),
		filesort.WithPolicy(filesort.BestEffortDefault),
		filesort.WithChunkSize(8),
		filesort.WithMetricsCollector(c),
	)
	require.NoError(t, err)
	defer s.Close()

	var out strings.Builder
	_, err = s.Sort(context.Background(), strings.NewReader("2.b\nbad\n1.a\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.malformed))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.records.WithLabelValues("split")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.records.WithLabelValues("merge")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs.WithLabelValues("split")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.passes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.discarded.WithLabelValues("success")))

	families, err := reg.Gather()
	require.NoError(t, err)

	var latency *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "filesort_phase_duration_seconds" {
			latency = f
		}
	}
	require.NotNil(t, latency)
	require.Len(t, latency.GetMetric(), 2)
	for _, m := range latency.GetMetric() {
		assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}
