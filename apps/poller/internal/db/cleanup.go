package db

import (
	"context"
	"fmt"
	"log"
)

// PruneImports keeps only the most recent keep import records
func (db *DB) PruneImports(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.conn.ExecContext(ctx, `
		DELETE FROM import_runs
		WHERE import_id NOT IN (
			SELECT import_id FROM import_runs
			ORDER BY imported_at_utc DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune import_runs: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		log.Printf("Cleanup: deleted %d old import records", rows)
	}
	return nil
}
