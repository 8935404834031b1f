package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWelfordState(t *testing.T) {
	var w WelfordState
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Update(v)
	}

	assert.Equal(t, 8, w.Count)
	assert.InDelta(t, 5.0, w.Mean, 1e-9)
	assert.InDelta(t, 2.0, w.StdDev(), 1e-9)

	z, ok := w.ZScore(9)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, z, 1e-9)
}

func TestWelfordStateUndefined(t *testing.T) {
	var w WelfordState
	w.Update(3)
	assert.Equal(t, 0.0, w.StdDev())

	_, ok := w.ZScore(10)
	assert.False(t, ok)
}

func TestBaselineLearner(t *testing.T) {
	l := NewBaselineLearner(3)
	monday8 := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	// Learn a stable slot with a little noise
	for i := 0; i < 20; i++ {
		_, anomalous := l.Observe(monday8.Add(time.Duration(i)*time.Minute), 100+i%3)
		assert.False(t, anomalous, "observation %d", i)
	}

	z, anomalous := l.Observe(monday8.Add(30*time.Minute), 10)
	assert.True(t, anomalous)
	assert.True(t, z < -3 && !math.IsInf(z, 0))

	// Other slots are learned separately
	_, anomalous = l.Observe(monday8.Add(24*time.Hour), 10)
	assert.False(t, anomalous)

	l.Reset()
	_, anomalous = l.Observe(monday8, 10)
	assert.False(t, anomalous)
}

func TestCollector(t *testing.T) {
	c := NewCollector(5 * time.Second)

	c.NATSPublishedInc()
	c.NATSPublishedInc()
	c.NATSPublishErrInc()
	c.NATSSetConnected(true)
	c.ObserveTick(20*time.Millisecond, 42, -0.5)
	c.ReloadResult(nil)
	c.ReloadResult(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.NATSPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublishErrs))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.ActiveVehicles))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.PollInterval))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SnapshotReloads.WithLabelValues("error")))
}
