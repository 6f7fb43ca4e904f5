package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// Connect opens the relational store. When postgresURL is set it connects to
// PostgreSQL; otherwise it falls back to an embedded SQLite file so the
// service still comes up without a database server.
func Connect(postgresURL, sqlitePath string) error {
	var err error

	if postgresURL != "" {
		DB, err = sql.Open("postgres", postgresURL)
		if err != nil {
			return err
		}

		// Connection pool settings
		DB.SetMaxOpenConns(25)
		DB.SetMaxIdleConns(5)
		DB.SetConnMaxLifetime(5 * time.Minute)

		if err = DB.Ping(); err != nil {
			return err
		}
		log.Println("✅ Connected to PostgreSQL")
	} else {
		log.Println("⚠️  DATABASE_URL not set. Falling back to embedded SQLite at", sqlitePath)
		DB, err = sql.Open("sqlite", sqlitePath)
		if err != nil {
			return err
		}

		// SQLite serializes writes; a single connection avoids SQLITE_BUSY
		DB.SetMaxOpenConns(1)

		if err = DB.Ping(); err != nil {
			return err
		}
		log.Println("✅ Connected to SQLite")
	}

	return InitTables()
}

// InitTables creates all necessary tables if they don't exist.
// DDL is kept dialect-neutral (no DB-side defaults or UUID generation) so the
// same schema works on both PostgreSQL and SQLite; IDs and timestamps are
// assigned in Go.
func InitTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL
		)`,

		// One-time codes for password reset: at most one row per email
		`CREATE TABLE IF NOT EXISTS otps (
			id UUID PRIMARY KEY,
			email VARCHAR(100) NOT NULL UNIQUE,
			code VARCHAR(6) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			is_verified BOOLEAN NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_otps_email ON otps(email)`,
		`CREATE INDEX IF NOT EXISTS idx_otps_expires_at ON otps(expires_at)`,
	}

	for _, query := range queries {
		if _, err := DB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ Database tables initialized")
	return nil
}

// Disconnect closes the database connection
func Disconnect() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
