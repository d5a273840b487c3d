package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmastock/m/internal/database"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS images (
            id TEXT PRIMARY KEY,
            filename TEXT NOT NULL,
            content_type TEXT NOT NULL,
            size INTEGER NOT NULL,
            created_at TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS medicines (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            price TEXT NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            status TEXT NOT NULL,
            image_id TEXT,
            version INTEGER NOT NULL DEFAULT 1,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            FOREIGN KEY(image_id) REFERENCES images(id)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_medicines_name ON medicines (name);`,
	`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            medicine_id TEXT NOT NULL,
            medicine_name TEXT NOT NULL,
            transaction_type TEXT NOT NULL,
            quantity_changed INTEGER NOT NULL,
            previous_quantity INTEGER NOT NULL,
            new_quantity INTEGER NOT NULL,
            timestamp TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions (timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_medicine ON transactions (medicine_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
	`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
	`CREATE TABLE IF NOT EXISTS medicines (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
			quantity BIGINT NOT NULL CHECK (quantity >= 0),
			status TEXT NOT NULL,
			image_id TEXT REFERENCES images(id),
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	`CREATE INDEX IF NOT EXISTS idx_medicines_name ON medicines (name);`,
	`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			medicine_id TEXT NOT NULL,
			medicine_name TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			quantity_changed BIGINT NOT NULL,
			previous_quantity BIGINT NOT NULL,
			new_quantity BIGINT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions (timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_medicine ON transactions (medicine_id);`,
}

// Run creates the database schema for the driver db was opened with.
func Run(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == database.DriverPostgres {
		schema = postgresSchema
	}
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
