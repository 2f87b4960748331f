package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

// NewPostgresStore opens a PostgreSQL-backed reputation store.
func NewPostgresStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	return newSQLStore(db, sqlDialect{
		name: "postgres",
		createTable: `
			CREATE TABLE IF NOT EXISTS sender_profiles (
				sender_key TEXT PRIMARY KEY,
				first_seen TEXT NOT NULL,
				message_count BIGINT NOT NULL,
				display_names TEXT NOT NULL,
				reply_to_domains TEXT NOT NULL
			)
		`,
		selectOne: `
			SELECT sender_key, first_seen, message_count, display_names, reply_to_domains
			FROM sender_profiles WHERE sender_key = $1 FOR UPDATE
		`,
		lookupOne: `
			SELECT sender_key, first_seen, message_count, display_names, reply_to_domains
			FROM sender_profiles WHERE sender_key = $1
		`,
		insertOne: `
			INSERT INTO sender_profiles (sender_key, first_seen, message_count, display_names, reply_to_domains)
			VALUES ($1, $2, $3, $4, $5)
		`,
		updateOne: `
			UPDATE sender_profiles
			SET message_count = $1, display_names = $2, reply_to_domains = $3
			WHERE sender_key = $4
		`,
		isDuplicate: func(err error) bool {
			var perr *pq.Error
			return errors.As(err, &perr) && perr.Code == pgUniqueViolation
		},
	}, logger)
}
