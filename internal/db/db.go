package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

func New(host, port, user, password, dbname string) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Migrate creates the schema. The unique indexes are the source of truth
// for every uniqueness rule in the application; handler-level existence
// checks are only a fast path.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS businesses (
		id UUID PRIMARY KEY,
		owner_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		business_name VARCHAR(120) UNIQUE NOT NULL,
		slug VARCHAR(140) UNIQUE NOT NULL,
		phone VARCHAR(11) UNIQUE NOT NULL,
		categories TEXT[] NOT NULL DEFAULT '{}',
		state TEXT NOT NULL,
		lga TEXT NOT NULL,
		town TEXT NOT NULL,
		address TEXT NOT NULL,
		store_type VARCHAR(10) NOT NULL,
		description VARCHAR(500),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_businesses_location
		ON businesses (LOWER(state), LOWER(lga), LOWER(town));
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
