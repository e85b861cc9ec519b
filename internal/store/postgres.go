package store

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres connects to the client-server SQL backend with the given
// DSN and creates the schema. The returned store carries the exact same
// transactional semantics as the SQLite backend.
func OpenPostgres(dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &sqlStore{db: db, dialect: dialectPostgres}
	if err := initPostgresSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init postgres schema: %w", err)
	}
	return s, nil
}

func initPostgresSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			user_id TEXT,
			model TEXT NOT NULL,
			system_prompt TEXT,
			first_user_message VARCHAR(100),
			first_assistant_message VARCHAR(100),
			metadata TEXT
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			tokens INTEGER,
			model TEXT,
			metadata TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
	`)
	return err
}
