package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var db *sql.DB

func initDB() {
	// Get database URL from environment variable, fallback to default for development
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = "user=admin password=password dbname=devconnectdb sslmode=disable"
		log.Default().Println("Warning: DATABASE_URL not set, using default connection string")
	}

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Error connecting to the database:", err)
	}
	err = db.Ping()
	if err != nil {
		log.Fatal("Cannot reach the database:", err)
	}

	if err := ensureSchema(db); err != nil {
		log.Fatal("Error initializing database schema:", err)
	}
	log.Default().Println("Database connection established successfully")
}

// ensureSchema creates the tables on first start so a fresh database
// works without manual setup.
//
// The matches table carries the one constraint the whole system leans on:
// UNIQUE (user_a, user_b) with user_a < user_b, so two users connecting to
// each other at the same instant can never produce two matches.
func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'Full Stack',
			skills JSONB NOT NULL DEFAULT '[]',
			looking_for JSONB NOT NULL DEFAULT '[]',
			seeking_skills JSONB NOT NULL DEFAULT '[]',
			location TEXT NOT NULL DEFAULT '',
			profile_completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS interests (
			from_user_id INT NOT NULL REFERENCES users(id),
			to_user_id INT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (from_user_id, to_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			user_a INT NOT NULL REFERENCES users(id),
			user_b INT NOT NULL REFERENCES users(id),
			chat_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_a, user_b),
			CHECK (user_a < user_b)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			chat_id TEXT NOT NULL,
			sender_id INT NOT NULL REFERENCES users(id),
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interests_to_user ON interests (to_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
