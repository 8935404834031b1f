package static

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static/gtfs"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static/snapshot"
)

// RefreshOptions configures RefreshIfStale
type RefreshOptions struct {
	URL        string // GTFS zip to download
	CacheDir   string // where the zip is kept
	OutDir     string // JSON snapshot directory
	MaxAgeDays int
}

// RefreshIfStale rebuilds the JSON snapshot in OutDir when its manifest is
// missing, older than MaxAgeDays or written by another generator version.
// It reports whether a rebuild happened.
func RefreshIfStale(ctx context.Context, opts RefreshOptions, now time.Time) (bool, error) {
	if !isStaleOrMissing(opts.OutDir, opts.MaxAgeDays, now) {
		log.Println("Static snapshot is fresh, skipping refresh")
		return false, nil
	}
	if opts.URL == "" {
		return false, fmt.Errorf("static snapshot in %s is stale and no GTFS URL is configured", opts.OutDir)
	}

	zipPath := filepath.Join(opts.CacheDir, "gtfs.zip")
	if err := gtfs.Download(ctx, opts.URL, zipPath); err != nil {
		return false, err
	}
	if err := Import(zipPath, opts.OutDir, now); err != nil {
		return false, err
	}
	return true, nil
}

// Import parses a GTFS zip and writes the JSON snapshot into outDir
func Import(zipPath, outDir string, now time.Time) error {
	data, err := gtfs.Parse(zipPath)
	if err != nil {
		return err
	}
	tables, _ := snapshot.Build(data)
	return snapshot.WriteJSON(outDir, tables, now)
}

func isStaleOrMissing(dir string, maxAgeDays int, now time.Time) bool {
	manifest, err := snapshot.ReadManifest(dir)
	if err != nil {
		return true
	}
	if manifest.GeneratorVersion != snapshot.GeneratorVersion {
		log.Printf("Snapshot generator version changed (%q -> %q)", manifest.GeneratorVersion, snapshot.GeneratorVersion)
		return true
	}

	stamp := manifest.UpdatedAt
	if stamp == "" {
		stamp = manifest.GeneratedAt
	}
	updatedAt, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return true
	}

	maxAge := time.Duration(maxAgeDays) * 24 * time.Hour
	return now.Sub(updatedAt) > maxAge
}
