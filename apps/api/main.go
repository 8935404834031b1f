package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/config"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/handlers"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/metrics"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/repository"
)

func main() {
	config.InitLogging()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Time zone: %s", cfg.Location)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The snapshot is loaded once; a missing or corrupt table stops the process
	src, err := repository.OpenSource(ctx, repository.SourceOptions{
		Kind:        cfg.SnapshotSource,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to open snapshot source: %v", err)
	}

	snap, err := repository.LoadSnapshot(ctx, src, cfg.Location)
	if err != nil {
		log.Fatalf("Failed to load schedule snapshot: %v", err)
	}
	// Everything is in memory now
	if err := src.Close(); err != nil {
		log.Printf("Warning: failed to close snapshot source: %v", err)
	}

	opts := handlers.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		StaticDir:      cfg.StaticDir,
	}
	if cfg.MetricsEnabled {
		collector := metrics.NewCollector()
		collector.ObserveSnapshot(snap.Version(), snap.Source, snap.LoadedAt, snap.Counts())
		opts.Middleware = append(opts.Middleware, collector.Middleware)
		opts.MetricsHandler = collector.Handler()
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handlers.NewRouter(snap, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("API server starting on %s", srv.Addr)
	log.Println("Endpoints:")
	for _, route := range handlers.Routes {
		log.Printf("  %s", route)
	}
	if cfg.MetricsEnabled {
		log.Println("  GET /metrics")
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}
