package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// requiredTables is the schema surface the search queries depend on.
var requiredTables = []string{
	"candidate_profiles",
	"candidate_embeddings",
	"selection_events",
}

// TablesExist checks whether all required tables are present.
func (s *Store) TablesExist(ctx context.Context) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		AND table_name = ANY($1)
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, pq.Array(requiredTables)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check tables: %w", err)
	}
	return count == len(requiredTables), nil
}

// MissingTables returns the required tables that do not exist yet.
func (s *Store) MissingTables(ctx context.Context) []string {
	query := `
		SELECT table_name
		FROM unnest($1::text[]) AS required(table_name)
		WHERE NOT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = required.table_name
		)
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(requiredTables))
	if err != nil {
		s.logger.Warn("failed to list missing tables", map[string]interface{}{
			"error": err.Error(),
		})
		return []string{"unknown"}
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close rows", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	var missing []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err == nil {
			missing = append(missing, table)
		}
	}
	return missing
}

// VectorExtensionExists checks whether the pgvector extension is
// installed. The ANN query cannot run without it.
func (s *Store) VectorExtensionExists(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check vector extension: %w", err)
	}
	return exists, nil
}

// Readiness verifies connectivity, the pgvector extension, and the
// required tables. A non-nil error means the service should report 503.
func (s *Store) Readiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	hasVector, err := s.VectorExtensionExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify vector extension: %w", err)
	}
	if !hasVector {
		return fmt.Errorf("pgvector extension is not installed")
	}

	exists, err := s.TablesExist(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify tables: %w", err)
	}
	if !exists {
		return fmt.Errorf("missing required tables: %v", s.MissingTables(ctx))
	}
	return nil
}
