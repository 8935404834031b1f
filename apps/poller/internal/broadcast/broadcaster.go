package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/metrics"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/publisher"
)

// Publisher delivers one vehicle update
type Publisher interface {
	PublishPosition(msg publisher.PositionMessage) error
}

// TickMetrics receives per-tick observations
type TickMetrics interface {
	ObserveTick(d time.Duration, vehicles int, zScore float64)
}

// Broadcaster locates every running bus on each tick and publishes it.
// The snapshot can be swapped while ticks are running.
type Broadcaster struct {
	snap     atomic.Pointer[schedule.Snapshot]
	pub      Publisher
	baseline *metrics.BaselineLearner
	metrics  TickMetrics
	clock    func() time.Time
}

// Option configures a Broadcaster
type Option func(*Broadcaster)

// WithMetrics reports tick durations and vehicle counts to m
func WithMetrics(m TickMetrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(b *Broadcaster) { b.clock = clock }
}

// WithBaseline flags ticks whose vehicle count strays from the learned baseline
func WithBaseline(l *metrics.BaselineLearner) Option {
	return func(b *Broadcaster) { b.baseline = l }
}

func New(snap *schedule.Snapshot, pub Publisher, opts ...Option) *Broadcaster {
	b := &Broadcaster{pub: pub, clock: time.Now}
	b.snap.Store(snap)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns the snapshot ticks currently run against
func (b *Broadcaster) Snapshot() *schedule.Snapshot {
	return b.snap.Load()
}

// Swap replaces the snapshot; the next tick uses the new one
func (b *Broadcaster) Swap(snap *schedule.Snapshot) {
	old := b.snap.Swap(snap)
	if b.baseline != nil {
		b.baseline.Reset()
	}
	log.Printf("Snapshot swapped: %s -> %s", old.Version(), snap.Version())
}

// Tick locates and publishes every active vehicle once.
// Publishing continues past individual failures; the joined errors are returned.
func (b *Broadcaster) Tick(ctx context.Context) (int, error) {
	start := time.Now()
	snap := b.snap.Load()
	now := b.clock()

	positions := snap.ActivePositions(now, nil)

	published := 0
	var errs []error
	for _, vp := range positions {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		msg := publisher.NewPositionMessage(vp, now, snap.Version())
		if err := b.pub.PublishPosition(msg); err != nil {
			errs = append(errs, fmt.Errorf("publish %s/%s: %w", vp.RouteID, vp.TripID, err))
			continue
		}
		published++
	}

	var z float64
	if b.baseline != nil {
		z, _ = b.baseline.Observe(now.In(snap.Location()), len(positions))
	}
	if b.metrics != nil {
		b.metrics.ObserveTick(time.Since(start), len(positions), z)
	}

	return published, errors.Join(errs...)
}

// Run ticks immediately and then every interval until ctx is done
func (b *Broadcaster) Run(ctx context.Context, interval time.Duration) {
	b.tickAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.tickAndLog(ctx)
		case <-ctx.Done():
			log.Println("Broadcast loop stopped")
			return
		}
	}
}

func (b *Broadcaster) tickAndLog(ctx context.Context) {
	n, err := b.Tick(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Broadcast tick error (%d published): %v", n, err)
	}
}
