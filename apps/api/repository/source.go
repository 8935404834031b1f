package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// SnapshotSource reads the persisted schedule tables
type SnapshotSource interface {
	// Name identifies the source in logs and /health ("json", "sqlite", "postgres")
	Name() string
	LoadTables(ctx context.Context) (schedule.Tables, error)
	Close() error
}

// LoadError reports a snapshot table that could not be read or decoded.
// The service must not start on a LoadError.
type LoadError struct {
	Source string
	Table  string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s %s: %v", e.Source, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SourceOptions selects and locates the snapshot source
type SourceOptions struct {
	Kind        string // json, sqlite or postgres
	DataDir     string
	SQLitePath  string
	DatabaseURL string
}

// OpenSource opens the source named by opts.Kind
func OpenSource(ctx context.Context, opts SourceOptions) (SnapshotSource, error) {
	switch opts.Kind {
	case "", "json":
		return NewJSONSource(opts.DataDir), nil
	case "sqlite":
		src, err := NewSQLiteSource(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "postgres":
		src, err := NewPostgresSource(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown snapshot source %q", opts.Kind)
	}
}

// LoadSnapshot reads every table from src and builds the immutable snapshot
func LoadSnapshot(ctx context.Context, src SnapshotSource, loc *time.Location) (*schedule.Snapshot, error) {
	start := time.Now()

	tables, err := src.LoadTables(ctx)
	if err != nil {
		return nil, err
	}

	invalidTrips := 0
	for routeID, trips := range tables.Timetables {
		for tripID, trip := range trips {
			if err := trip.Validate(); err != nil {
				invalidTrips++
				if invalidTrips <= 5 {
					log.Printf("Warning: trip %s/%s: %v", routeID, tripID, err)
				}
			}
		}
	}
	if invalidTrips > 5 {
		log.Printf("Warning: %d trips failed validation in total", invalidTrips)
	}

	invalidShapes := 0
	for key, shape := range tables.Shapes {
		patternLen := len(schedule.ParsePersistedPatternKey(key).StopIDs())
		if err := shape.Validate(patternLen); err != nil {
			invalidShapes++
			if invalidShapes <= 5 {
				log.Printf("Warning: shape %q: %v", key, err)
			}
		}
	}
	if invalidShapes > 5 {
		log.Printf("Warning: %d shapes failed validation in total", invalidShapes)
	}

	snap := schedule.NewSnapshot(tables, src.Name(), loc)
	c := snap.Counts()
	log.Printf("Loaded %d stops", c.Stops)
	log.Printf("Loaded %d routes, %d trips", c.Routes, c.Trips)
	log.Printf("Loaded %d shapes", c.Shapes)
	log.Printf("Loaded %d calendar entries, %d exceptions, %d offices", c.Services, c.Exceptions, c.Offices)
	log.Printf("Snapshot %s ready from %s in %v", snap.ID, src.Name(), time.Since(start).Round(time.Millisecond))
	return snap, nil
}
