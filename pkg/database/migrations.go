package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a schema migration applied in version order
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS sessions (
				session_id       TEXT PRIMARY KEY,
				created_at       DATETIME NOT NULL,
				last_activity_at DATETIME NOT NULL,
				version          INTEGER NOT NULL DEFAULT 0,
				workflow         TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_sessions_last_activity
				ON sessions(last_activity_at);

			CREATE TABLE IF NOT EXISTS tickets (
				ticket_number TEXT PRIMARY KEY,
				workflow_id   TEXT NOT NULL UNIQUE,
				workflow_type TEXT NOT NULL,
				subject       TEXT NOT NULL,
				details       TEXT NOT NULL,
				location      TEXT NOT NULL DEFAULT '',
				feedback      TEXT NOT NULL DEFAULT 'Aduan',
				category      TEXT NOT NULL DEFAULT '',
				sub_category  TEXT NOT NULL DEFAULT '',
				blocked_road  INTEGER NOT NULL DEFAULT 0,
				image_url     TEXT NOT NULL DEFAULT '',
				status        TEXT NOT NULL DEFAULT 'open',
				created_at    DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS ticket_counters (
				day   TEXT PRIMARY KEY,
				value INTEGER NOT NULL
			);
		`,
	},
}

// Migrator applies pending schema migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// Run applies all pending migrations in version order
func (m *Migrator) Run() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if err := m.apply(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(migration Migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}

		return nil
	})
}
