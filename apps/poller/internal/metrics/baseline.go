package metrics

import (
	"log"
	"sync"
	"time"
)

// Observations needed in a slot before deviations are reported
const minBaselineSamples = 10

type slot struct {
	weekday time.Weekday
	hour    int
}

// BaselineLearner learns the expected number of active vehicles per
// weekday and hour and flags ticks that stray from it. A schedule that
// suddenly yields far fewer buses usually means a broken calendar import.
type BaselineLearner struct {
	mu        sync.Mutex
	slots     map[slot]*WelfordState
	threshold float64
}

// NewBaselineLearner flags counts more than threshold standard deviations from the mean
func NewBaselineLearner(threshold float64) *BaselineLearner {
	return &BaselineLearner{slots: make(map[slot]*WelfordState), threshold: threshold}
}

// Observe records the active vehicle count at now (in the network time zone)
// and returns its z-score against earlier observations of the same slot
func (l *BaselineLearner) Observe(now time.Time, count int) (z float64, anomalous bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := slot{weekday: now.Weekday(), hour: now.Hour()}
	w, ok := l.slots[key]
	if !ok {
		w = &WelfordState{}
		l.slots[key] = w
	}

	if w.Count >= minBaselineSamples {
		if score, defined := w.ZScore(float64(count)); defined {
			z = score
			anomalous = z > l.threshold || z < -l.threshold
		}
	}
	w.Update(float64(count))

	if anomalous {
		log.Printf("Baseline: %d active vehicles on %s %02d:00 is %.1fσ from the mean %.1f",
			count, key.weekday, key.hour, z, w.Mean)
	}
	return z, anomalous
}

// Reset forgets every slot, e.g. after a new snapshot is loaded
func (l *BaselineLearner) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots = make(map[slot]*WelfordState)
}
