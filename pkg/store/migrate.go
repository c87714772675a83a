package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"

	// File source for migration scripts
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies pending migrations from the configured path.
// An already up-to-date schema is not an error.
func (s *Store) RunMigrations() error {
	path := s.cfg.MigrationsPath
	if path == "" {
		path = "migrations"
	}

	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			s.logger.Info("schema is up to date", map[string]interface{}{
				"path": path,
			})
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		s.logger.Warn("failed to read migration version", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	s.logger.Info("migrations applied", map[string]interface{}{
		"path":    path,
		"version": version,
		"dirty":   dirty,
	})
	return nil
}

// Portuguese full-text definition for candidate profiles. The trigger
// keeps search_document current on writes; MigrateFTS recreates both
// and backfills existing rows.
const (
	ftsFunctionSQL = `
CREATE OR REPLACE FUNCTION candidate_profiles_refresh_search_document() RETURNS trigger AS $$
BEGIN
	NEW.search_document :=
		setweight(to_tsvector('portuguese', coalesce(NEW.title, '')), 'A') ||
		setweight(to_tsvector('portuguese', coalesce(NEW.headline, '')), 'B') ||
		setweight(to_tsvector('portuguese', array_to_string(NEW.skills, ' ')), 'B') ||
		setweight(to_tsvector('portuguese', array_to_string(NEW.industries, ' ')), 'C');
	RETURN NEW;
END
$$ LANGUAGE plpgsql`

	ftsDropTriggerSQL = `DROP TRIGGER IF EXISTS candidate_profiles_search_document ON candidate_profiles`

	ftsCreateTriggerSQL = `
CREATE TRIGGER candidate_profiles_search_document
	BEFORE INSERT OR UPDATE OF title, headline, skills, industries
	ON candidate_profiles
	FOR EACH ROW
	EXECUTE FUNCTION candidate_profiles_refresh_search_document()`

	ftsRepopulateSQL = `
UPDATE candidate_profiles SET search_document =
	setweight(to_tsvector('portuguese', coalesce(title, '')), 'A') ||
	setweight(to_tsvector('portuguese', coalesce(headline, '')), 'B') ||
	setweight(to_tsvector('portuguese', array_to_string(skills, ' ')), 'B') ||
	setweight(to_tsvector('portuguese', array_to_string(industries, ' ')), 'C')`
)

// MigrateFTS rebuilds the full-text trigger and repopulates
// search_document for every profile. Safe to re-run; used by the admin
// endpoint after changing the tsvector definition. Returns the number
// of profiles updated.
func (s *Store) MigrateFTS(ctx context.Context) (int64, error) {
	var updated int64
	err := s.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, ftsFunctionSQL); err != nil {
			return fmt.Errorf("failed to create search document function: %w", err)
		}
		if _, err := tx.ExecContext(ctx, ftsDropTriggerSQL); err != nil {
			return fmt.Errorf("failed to drop search document trigger: %w", err)
		}
		if _, err := tx.ExecContext(ctx, ftsCreateTriggerSQL); err != nil {
			return fmt.Errorf("failed to create search document trigger: %w", err)
		}

		res, err := tx.ExecContext(ctx, ftsRepopulateSQL)
		if err != nil {
			return fmt.Errorf("failed to repopulate search documents: %w", err)
		}
		updated, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("full-text search documents rebuilt", map[string]interface{}{
		"profiles_updated": updated,
	})
	return updated, nil
}
