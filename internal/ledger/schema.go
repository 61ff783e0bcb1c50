package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,          -- 'train' or 'render'
    scenario TEXT NOT NULL,
    algorithm TEXT NOT NULL,
    experiment TEXT NOT NULL,
    seed INTEGER NOT NULL,
    argv TEXT NOT NULL,          -- JSON array
    work_dir TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    exit_code INTEGER,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_scenario_algo ON runs(scenario, algorithm);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations[v] upgrades a version v database to v+1.
var migrations = map[int]string{
	1: `ALTER TABLE runs ADD COLUMN host TEXT;`,
}

// InitSchema creates the schema on a fresh database. An existing database is
// integrity-checked and migrated forward to SchemaVersion.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("ledger integrity check failed: %w", err)
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("ledger schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}
	for v := currentVersion; v < SchemaVersion; v++ {
		if err := migrate(ctx, db, v); err != nil {
			return fmt.Errorf("migrating ledger from v%d: %w", v, err)
		}
	}
	return nil
}

// getSchemaVersion fails when the schema_version table does not exist yet.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// createSchema lays down v1 and migrates it, so fresh and upgraded ledgers
// end up identical.
func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	if err := recordVersion(ctx, tx, 1); err != nil {
		return err
	}
	for v := 1; v < SchemaVersion; v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("applying v%d: %w", v+1, err)
		}
		if err := recordVersion(ctx, tx, v+1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func migrate(ctx context.Context, db *sql.DB, from int) error {
	stmt, ok := migrations[from]
	if !ok {
		return fmt.Errorf("no migration from v%d", from)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if err := recordVersion(ctx, tx, from+1); err != nil {
		return err
	}
	return tx.Commit()
}

func recordVersion(ctx context.Context, tx *sql.Tx, version int) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		version); err != nil {
		return fmt.Errorf("recording schema version %d: %w", version, err)
	}
	return nil
}

// ValidateIntegrity runs PRAGMA integrity_check.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("running integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("scanning integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check: %s", result)
		}
	}
	return rows.Err()
}
