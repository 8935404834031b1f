package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// snapshotTables is every table an import replaces, in deletion order
var snapshotTables = []string{
	"stop_times", "trips", "stops", "routes", "shapes", "calendar", "calendar_dates", "offices",
}

// ImportRun records one snapshot import
type ImportRun struct {
	ImportID         string
	ImportedAt       time.Time
	GeneratorVersion string
	Stops            int
	Trips            int
	Shapes           int
}

// newImportRun summarises the tables about to be written
func newImportRun(t schedule.Tables, importedAt time.Time, generatorVersion string) ImportRun {
	trips := 0
	for _, routeTrips := range t.Timetables {
		trips += len(routeTrips)
	}
	return ImportRun{
		ImportID:         uuid.New().String(),
		ImportedAt:       importedAt.UTC(),
		GeneratorVersion: generatorVersion,
		Stops:            len(t.Stops),
		Trips:            trips,
		Shapes:           len(t.Shapes),
	}
}

// encodeShape renders a shape's arrays as the JSON text stored in the shapes table
func encodeShape(coords [][]float64, indices []int) (string, string, error) {
	c, err := json.Marshal(coords)
	if err != nil {
		return "", "", err
	}
	i, err := json.Marshal(indices)
	if err != nil {
		return "", "", err
	}
	return string(c), string(i), nil
}

// WriteSnapshot replaces the stored snapshot with t in a single transaction
// and returns the import id
func (db *DB) WriteSnapshot(ctx context.Context, t schedule.Tables, importedAt time.Time, generatorVersion string) (string, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range snapshotTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	insert := func(table, query string, rows func(stmt *sql.Stmt) error) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s insert: %w", table, err)
		}
		defer stmt.Close()
		if err := rows(stmt); err != nil {
			return fmt.Errorf("failed to insert %s: %w", table, err)
		}
		return nil
	}

	if err := insert("stops", "INSERT INTO stops (stop_id, name, yomi, lat, lng, platform) VALUES (?, ?, ?, ?, ?, ?)", func(stmt *sql.Stmt) error {
		for id, s := range t.Stops {
			if _, err := stmt.ExecContext(ctx, id, s.Name, s.Yomi, s.Lat, s.Lng, s.Platform); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("routes", "INSERT INTO routes (route_id, short_name, color) VALUES (?, ?, ?)", func(stmt *sql.Stmt) error {
		for id, r := range t.Routes {
			if _, err := stmt.ExecContext(ctx, id, r.ShortName, r.Color); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("trips", "INSERT INTO trips (route_id, trip_id, headsign, via, service_id, office_id) VALUES (?, ?, ?, ?, ?, ?)", func(stmt *sql.Stmt) error {
		for routeID, trips := range t.Timetables {
			for tripID, trip := range trips {
				if _, err := stmt.ExecContext(ctx, routeID, tripID, trip.Headsign, trip.Via, trip.ServiceID, trip.OfficeID); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("stop_times", "INSERT INTO stop_times (route_id, trip_id, stop_sequence, time, stop_id) VALUES (?, ?, ?, ?, ?)", func(stmt *sql.Stmt) error {
		for routeID, trips := range t.Timetables {
			for tripID, trip := range trips {
				for seq, st := range trip.Stops {
					if _, err := stmt.ExecContext(ctx, routeID, tripID, seq, st.Time, st.StopID); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("shapes", "INSERT INTO shapes (pattern_key, coordinates, stop_indices) VALUES (?, ?, ?)", func(stmt *sql.Stmt) error {
		for key, shape := range t.Shapes {
			coords, indices, err := encodeShape(shape.Coordinates, shape.StopIndices)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, key, coords, indices); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("calendar", "INSERT INTO calendar (service_id, days, start_date, end_date) VALUES (?, ?, ?, ?)", func(stmt *sql.Stmt) error {
		for id, c := range t.Calendar {
			if _, err := stmt.ExecContext(ctx, id, strings.Join(c.Days, ""), c.Start, c.End); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("calendar_dates", "INSERT INTO calendar_dates (seq, service_id, date, exception_type) VALUES (?, ?, ?, ?)", func(stmt *sql.Stmt) error {
		for seq, ex := range t.Extra.CalendarDates {
			if _, err := stmt.ExecContext(ctx, seq, ex.ServiceID, ex.Date, ex.ExceptionType); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := insert("offices", "INSERT INTO offices (office_id, name) VALUES (?, ?)", func(stmt *sql.Stmt) error {
		for id, name := range t.Extra.Offices {
			if _, err := stmt.ExecContext(ctx, id, name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	run := newImportRun(t, importedAt, generatorVersion)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO import_runs (import_id, imported_at_utc, generator_version, stops, trips, shapes) VALUES (?, ?, ?, ?, ?, ?)",
		run.ImportID, run.ImportedAt.Format(time.RFC3339), run.GeneratorVersion, run.Stops, run.Trips, run.Shapes,
	); err != nil {
		return "", fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}

	log.Printf("SQLite snapshot written: import %s (%d stops, %d trips, %d shapes)", run.ImportID, run.Stops, run.Trips, run.Shapes)
	return run.ImportID, nil
}

// LatestImport returns the most recent import, or nil when none was recorded
func (db *DB) LatestImport(ctx context.Context) (*ImportRun, error) {
	var run ImportRun
	var importedAt string
	err := db.conn.QueryRowContext(ctx, `
		SELECT import_id, imported_at_utc, generator_version, stops, trips, shapes
		FROM import_runs
		ORDER BY imported_at_utc DESC
		LIMIT 1
	`).Scan(&run.ImportID, &importedAt, &run.GeneratorVersion, &run.Stops, &run.Trips, &run.Shapes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid imported_at_utc %q: %w", importedAt, err)
	}
	return &run, nil
}
