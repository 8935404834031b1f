package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// PostgresDB writes snapshots to PostgreSQL
type PostgresDB struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool and checks the server is reachable
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Connected to PostgreSQL database")
	return &PostgresDB{pool: pool}, nil
}

// Close closes the pool
func (db *PostgresDB) Close() {
	db.pool.Close()
}

// EnsureSchema creates tables if they don't exist
func (db *PostgresDB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	log.Println("PostgreSQL schema ensured")
	return nil
}

// WriteSnapshot truncates the snapshot tables and bulk-loads t with COPY,
// all in one transaction, and returns the import id
func (db *PostgresDB) WriteSnapshot(ctx context.Context, t schedule.Tables, importedAt time.Time, generatorVersion string) (string, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+strings.Join(snapshotTables, ", ")); err != nil {
		return "", fmt.Errorf("failed to truncate snapshot tables: %w", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"stops", []string{"stop_id", "name", "yomi", "lat", "lng", "platform"}, stopRows(t)},
		{"routes", []string{"route_id", "short_name", "color"}, routeRows(t)},
		{"trips", []string{"route_id", "trip_id", "headsign", "via", "service_id", "office_id"}, tripRows(t)},
		{"stop_times", []string{"route_id", "trip_id", "stop_sequence", "time", "stop_id"}, stopTimeRows(t)},
		{"calendar", []string{"service_id", "days", "start_date", "end_date"}, calendarRows(t)},
		{"calendar_dates", []string{"seq", "service_id", "date", "exception_type"}, calendarDateRows(t)},
		{"offices", []string{"office_id", "name"}, officeRows(t)},
	}

	shapes, err := shapeRows(t)
	if err != nil {
		return "", err
	}
	copies = append(copies, struct {
		table   string
		columns []string
		rows    [][]any
	}{"shapes", []string{"pattern_key", "coordinates", "stop_indices"}, shapes})

	for _, c := range copies {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
		if err != nil {
			return "", fmt.Errorf("failed to copy %s: %w", c.table, err)
		}
		if int(n) != len(c.rows) {
			return "", fmt.Errorf("copy %s: wrote %d of %d rows", c.table, n, len(c.rows))
		}
	}

	run := newImportRun(t, importedAt, generatorVersion)
	if _, err := tx.Exec(ctx,
		"INSERT INTO import_runs (import_id, imported_at_utc, generator_version, stops, trips, shapes) VALUES ($1, $2, $3, $4, $5, $6)",
		run.ImportID, run.ImportedAt, run.GeneratorVersion, run.Stops, run.Trips, run.Shapes,
	); err != nil {
		return "", fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}

	log.Printf("PostgreSQL snapshot written: import %s (%d stops, %d trips, %d shapes)", run.ImportID, run.Stops, run.Trips, run.Shapes)
	return run.ImportID, nil
}

func stopRows(t schedule.Tables) [][]any {
	rows := make([][]any, 0, len(t.Stops))
	for id, s := range t.Stops {
		rows = append(rows, []any{id, s.Name, s.Yomi, s.Lat, s.Lng, s.Platform})
	}
	return rows
}

func routeRows(t schedule.Tables) [][]any {
	rows := make([][]any, 0, len(t.Routes))
	for id, r := range t.Routes {
		rows = append(rows, []any{id, r.ShortName, r.Color})
	}
	return rows
}

func tripRows(t schedule.Tables) [][]any {
	var rows [][]any
	for routeID, trips := range t.Timetables {
		for tripID, trip := range trips {
			rows = append(rows, []any{routeID, tripID, trip.Headsign, trip.Via, trip.ServiceID, trip.OfficeID})
		}
	}
	return rows
}

func stopTimeRows(t schedule.Tables) [][]any {
	var rows [][]any
	for routeID, trips := range t.Timetables {
		for tripID, trip := range trips {
			for seq, st := range trip.Stops {
				rows = append(rows, []any{routeID, tripID, int32(seq), st.Time, st.StopID})
			}
		}
	}
	return rows
}

func shapeRows(t schedule.Tables) ([][]any, error) {
	rows := make([][]any, 0, len(t.Shapes))
	for key, shape := range t.Shapes {
		coords, indices, err := encodeShape(shape.Coordinates, shape.StopIndices)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", key, err)
		}
		rows = append(rows, []any{key, coords, indices})
	}
	return rows, nil
}

func calendarRows(t schedule.Tables) [][]any {
	rows := make([][]any, 0, len(t.Calendar))
	for id, c := range t.Calendar {
		rows = append(rows, []any{id, strings.Join(c.Days, ""), c.Start, c.End})
	}
	return rows
}

func calendarDateRows(t schedule.Tables) [][]any {
	rows := make([][]any, 0, len(t.Extra.CalendarDates))
	for seq, ex := range t.Extra.CalendarDates {
		rows = append(rows, []any{int32(seq), ex.ServiceID, ex.Date, ex.ExceptionType})
	}
	return rows
}

func officeRows(t schedule.Tables) [][]any {
	rows := make([][]any, 0, len(t.Extra.Offices))
	for id, name := range t.Extra.Offices {
		rows = append(rows, []any{id, name})
	}
	return rows
}
