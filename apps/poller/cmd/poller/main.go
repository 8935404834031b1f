package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/repository"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/broadcast"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/config"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/metrics"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/publisher"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static"
)

// anomalyThreshold is the |z| above which a tick's vehicle count is logged
const anomalyThreshold = 3.0

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("Starting bus position broadcaster...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Config loaded: source=%s, poll_interval=%v, reload=%v", cfg.SnapshotSource, cfg.PollInterval, cfg.ReloadInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Static Data Refresh (startup)
	// ═══════════════════════════════════════════════════════
	refreshStatic(ctx, cfg)

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Load Schedule Snapshot
	// ═══════════════════════════════════════════════════════
	snap, err := loadSnapshot(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load schedule snapshot: %v", err)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Metrics and NATS
	// ═══════════════════════════════════════════════════════
	collector := metrics.NewCollector(cfg.PollInterval)
	if cfg.MetricsAddr != "" {
		srv := collector.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix, cfg.LogNATSSubjects, collector)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	b := broadcast.New(snap, pub,
		broadcast.WithMetrics(collector),
		broadcast.WithBaseline(metrics.NewBaselineLearner(anomalyThreshold)),
	)

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Broadcast and Reload Loops
	// ═══════════════════════════════════════════════════════
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx, cfg.PollInterval)
	}()

	go func() {
		ticker := time.NewTicker(cfg.ReloadInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				log.Println("Reloading schedule snapshot...")
				refreshStatic(ctx, cfg)
				next, err := loadSnapshot(ctx, cfg)
				collector.ReloadResult(err)
				if err != nil {
					log.Printf("Snapshot reload failed, still serving %s: %v", b.Snapshot().Version(), err)
					continue
				}
				b.Swap(next)
			case <-ctx.Done():
				log.Println("Reload loop stopped")
				return
			}
		}
	}()

	log.Printf("Broadcaster running (every %v, subjects %s.<route>.<trip>)", cfg.PollInterval, cfg.SubjectPrefix)

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful Shutdown
	// ═══════════════════════════════════════════════════════
	<-ctx.Done()
	log.Println("Shutting down...")
	<-done
	if err := pub.Flush(); err != nil {
		log.Printf("NATS flush failed: %v", err)
	}
	log.Println("Goodbye!")
}

// refreshStatic rebuilds the JSON snapshot from GTFS_URL when it is stale.
// Failures are logged; the existing files are used.
func refreshStatic(ctx context.Context, cfg *config.Config) {
	if cfg.GTFSURL == "" || cfg.SnapshotSource != "json" {
		return
	}
	log.Println("Checking static data freshness...")
	_, err := static.RefreshIfStale(ctx, static.RefreshOptions{
		URL:        cfg.GTFSURL,
		CacheDir:   cfg.CacheDir,
		OutDir:     cfg.DataDir,
		MaxAgeDays: cfg.StaticRefreshDays,
	}, time.Now())
	if err != nil {
		log.Printf("Warning: static data refresh failed: %v", err)
	}
}

func loadSnapshot(ctx context.Context, cfg *config.Config) (*schedule.Snapshot, error) {
	src, err := repository.OpenSource(ctx, repository.SourceOptions{
		Kind:        cfg.SnapshotSource,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return repository.LoadSnapshot(ctx, src, cfg.Location)
}
