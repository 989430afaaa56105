package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationMetrics(t *testing.T) {
	var om OperationMetrics
	for i := 1; i <= 20; i++ {
		om.Record(time.Duration(i)*time.Millisecond, i%4 != 0, i%4 == 0 && i > 10)
	}

	assert.Equal(t, int64(20), om.Total)
	assert.Equal(t, int64(15), om.Success)
	assert.Equal(t, int64(3), om.Conflict)
	assert.Equal(t, int64(2), om.Error)

	avg, min, max, p50, p95 := om.Stats()
	assert.Equal(t, 10500*time.Microsecond, avg)
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 20*time.Millisecond, max)
	assert.Equal(t, 11*time.Millisecond, p50)
	assert.Equal(t, 20*time.Millisecond, p95)
}

func TestOperationMetrics_Empty(t *testing.T) {
	var om OperationMetrics
	avg, min, max, p50, p95 := om.Stats()
	for _, d := range []time.Duration{avg, min, max, p50, p95} {
		assert.Zero(t, d)
	}
}

func TestSeededDates(t *testing.T) {
	start := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2024-12-30", "2024-12-31", "2025-01-01"}, seededDates(start, 3))
	assert.Empty(t, seededDates(start, 0))
}

func TestNormalize(t *testing.T) {
	b, c, r := normalize(2, 1, 1)
	assert.InDelta(t, 0.5, b, 1e-9)
	assert.InDelta(t, 0.25, c, 1e-9)
	assert.InDelta(t, 0.25, r, 1e-9)

	b, c, r = normalize(0, 0, 0)
	assert.Zero(t, b+c+r)
}

func TestValidateConfig(t *testing.T) {
	ok := SimConfig{Workers: 1, Duration: time.Second, Dates: []string{"2024-01-15"}}
	require.NoError(t, validateConfig(ok))

	noDates := ok
	noDates.Dates = nil
	assert.Error(t, validateConfig(noDates))

	noWorkers := ok
	noWorkers.Workers = 0
	assert.Error(t, validateConfig(noWorkers))
}
