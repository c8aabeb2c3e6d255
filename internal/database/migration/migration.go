package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_admins",
		SQL: `CREATE TABLE IF NOT EXISTS admins (
  id            BIGSERIAL    PRIMARY KEY,
  username      VARCHAR(80)  NOT NULL UNIQUE,
  password_hash VARCHAR(255) NOT NULL
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                BIGSERIAL    PRIMARY KEY,
  username          VARCHAR(100) NOT NULL UNIQUE,
  filename          VARCHAR(255),
  original_filename VARCHAR(255),
  created_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
}

// queryStrictColumns finds file columns that older schemas declared NOT NULL.
// A username can now be reserved before any PDF is attached.
const queryStrictColumns = `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema()
  AND table_name = 'documents'
  AND column_name IN ('filename', 'original_filename')
  AND is_nullable = 'NO'
ORDER BY column_name`

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
// When the table already exists it applies the one-time relaxation of legacy
// NOT NULL constraints on the file columns; a migrated schema is left untouched.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger, dbHost string) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{"component": "database", "db_host": dbHost})

	log.WithFields(logrus.Fields{"event": "db_migration_check", "status": "starting"}).Info("checking schema")

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_failed",
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		if err := relaxFileColumns(ctx, db, log); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema already exists, skipping migration")
		return nil
	}

	log.WithFields(logrus.Fields{"event": "db_migration_start", "status": "in_progress"}).Info("creating schema")

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			log.WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).WithError(err).Error("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Info("migration step applied")
	}

	log.WithFields(logrus.Fields{
		"event":       "db_migration_success",
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("schema created")

	return nil
}

func relaxFileColumns(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	rows, err := db.QueryContext(ctx, queryStrictColumns)
	if err != nil {
		return fmt.Errorf("inspect documents columns: %w", err)
	}
	var strict []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan documents column: %w", err)
		}
		strict = append(strict, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect documents columns: %w", err)
	}
	if len(strict) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin nullable migration: %w", err)
	}
	for _, col := range strict {
		// col is one of the two literal names in queryStrictColumns.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE documents ALTER COLUMN %s DROP NOT NULL", col)); err != nil {
			_ = tx.Rollback()
			log.WithFields(logrus.Fields{
				"event":          "db_migration_failed",
				"status":         "error",
				"migration_step": "drop_not_null_" + col,
			}).WithError(err).Error("nullable migration failed")
			return fmt.Errorf("drop not null on %s: %w", col, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit nullable migration: %w", err)
	}

	log.WithFields(logrus.Fields{
		"event":   "db_migration_step",
		"status":  "success",
		"columns": strict,
	}).Info("documents file columns made nullable")
	return nil
}
