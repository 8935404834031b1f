package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads a snapshot written by import-gtfs into a SQLite file
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens the database read-only
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &LoadError{Source: "sqlite", Table: "open", Err: err}
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &LoadError{Source: "sqlite", Table: "open", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Name() string { return "sqlite" }

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// LoadTables reads every snapshot table
func (s *SQLiteSource) LoadTables(ctx context.Context) (schedule.Tables, error) {
	return readTables(ctx, s.Name(), func(ctx context.Context, query string) (rowScanner, func(), error) {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return rows, func() { rows.Close() }, nil
	})
}
