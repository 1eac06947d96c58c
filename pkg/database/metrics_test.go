package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSnapshot() PoolSnapshot {
	return PoolSnapshot{
		Acquired:        3,
		Idle:            2,
		Total:           5,
		Max:             10,
		AcquireCount:    42,
		AcquireSeconds:  1.5,
		EmptyAcquires:   7,
		CanceledAcquire: 1,
	}
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := newPoolStatsCollector(fixedSnapshot, "sellertrust")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 8)
}

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := newPoolStatsCollector(fixedSnapshot, "sellertrust")
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	assert.Equal(t, 8, testutil.CollectAndCount(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		m := mf.GetMetric()[0]
		assert.Equal(t, "sellertrust", m.GetLabel()[0].GetValue())
		if g := m.GetGauge(); g != nil {
			values[mf.GetName()] = g.GetValue()
		}
		if ctr := m.GetCounter(); ctr != nil {
			values[mf.GetName()] = ctr.GetValue()
		}
	}

	assert.Equal(t, 3.0, values["db_pool_acquired_connections"])
	assert.Equal(t, 10.0, values["db_pool_max_connections"])
	assert.Equal(t, 42.0, values["db_pool_acquire_count_total"])
	assert.Equal(t, 1.5, values["db_pool_acquire_duration_seconds_total"])
	assert.Equal(t, 7.0, values["db_pool_empty_acquire_count_total"])
}

func TestPoolStatsCollector_ImplementsCollector(t *testing.T) {
	var _ prometheus.Collector = newPoolStatsCollector(fixedSnapshot, "sellertrust")
}
