package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all access schema migrations. The DDL sticks to types
// that behave identically on PostgreSQL and SQLite so the same schema backs
// production and in-memory tests.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					email TEXT NOT NULL UNIQUE,
					created_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
			`,
		},
		{
			Version:     2,
			Description: "Create groups table",
			SQL: `
				CREATE TABLE IF NOT EXISTS groups (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					created_at TIMESTAMP NOT NULL
				);
			`,
		},
		{
			Version:     3,
			Description: "Create user_groups membership table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_groups (
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					joined_at TIMESTAMP NOT NULL,
					PRIMARY KEY (user_id, group_id)
				);

				CREATE INDEX IF NOT EXISTS idx_user_groups_group_id ON user_groups(group_id);
			`,
		},
		{
			Version:     4,
			Description: "Create resources table",
			SQL: `
				CREATE TABLE IF NOT EXISTS resources (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					is_global BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_resources_is_global ON resources(is_global);
			`,
		},
		{
			Version:     5,
			Description: "Create resource_shares table",
			SQL: `
				CREATE TABLE IF NOT EXISTS resource_shares (
					id TEXT PRIMARY KEY,
					resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
					share_type TEXT NOT NULL,
					target_id TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL,
					UNIQUE (resource_id, share_type, target_id)
				);

				CREATE INDEX IF NOT EXISTS idx_resource_shares_resource_id ON resource_shares(resource_id);
				CREATE INDEX IF NOT EXISTS idx_resource_shares_target ON resource_shares(share_type, target_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations, tracking applied versions in
// the access_migrations table
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS access_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM access_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO access_migrations (version, description, applied_at) VALUES ($1, $2, $3)",
			migration.Version, migration.Description, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
