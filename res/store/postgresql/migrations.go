package postgresql

import (
	"ifc-query-api/res/store/migrate"

	"gorm.io/gorm"
)

// ensureBaseSchema creates the version-0 schema (the bare users table).
// Everything after that is owned by the migration registry.
func ensureBaseSchema(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			login TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)
	`).Error
}

// Migrations is the ordered registry of schema changes. Units are keyed by
// (from, to) version pairs and appended here only; published versions are
// never edited.
func Migrations() []migrate.Unit {
	return []migrate.Unit{
		{
			From: 0, To: 1, Name: "create_schema_version",
			Run: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE TABLE IF NOT EXISTS schema_version (
						version INTEGER PRIMARY KEY,
						applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
					)
				`).Error
			},
		},
		{
			From: 1, To: 2, Name: "add_user_plan",
			Run: func(tx *gorm.DB) error {
				return tx.Exec(`ALTER TABLE users ADD COLUMN plan TEXT NOT NULL DEFAULT 'free'`).Error
			},
		},
		{
			From: 2, To: 3, Name: "create_sessions",
			Run: func(tx *gorm.DB) error {
				err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS sessions (
						session_id TEXT PRIMARY KEY,
						user_id TEXT NOT NULL REFERENCES users(login),
						access_token TEXT NOT NULL,
						expires_at TIMESTAMP NOT NULL,
						created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
					)
				`).Error
				if err != nil {
					return err
				}

				// Covers both lookup by handle and the expiry predicate.
				return tx.Exec(`
					CREATE INDEX IF NOT EXISTS idx_sessions_expiry
					ON sessions(session_id, expires_at)
				`).Error
			},
		},
		{
			From: 3, To: 4, Name: "create_events",
			Run: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE TABLE IF NOT EXISTS events (
						id TEXT PRIMARY KEY,
						timestamp TIMESTAMP NOT NULL,
						event TEXT NOT NULL,
						"user" TEXT,
						properties TEXT
					)
				`).Error
			},
		},
	}
}
