package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// PostgresSource reads a snapshot written by import-gtfs into PostgreSQL
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &LoadError{Source: "postgres", Table: "open", Err: fmt.Errorf("failed to create connection pool: %w", err)}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &LoadError{Source: "postgres", Table: "open", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &PostgresSource{pool: pool}, nil
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSource) LoadTables(ctx context.Context) (schedule.Tables, error) {
	return readTables(ctx, s.Name(), func(ctx context.Context, query string) (rowScanner, func(), error) {
		rows, err := s.pool.Query(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return rows, rows.Close, nil
	})
}
