package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// NewSQLiteStore opens a file-backed reputation store. SQLite serializes
// writers, so the transaction alone gives Record its atomicity.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSQLStore(db, sqlDialect{
		name: "sqlite",
		createTable: `
			CREATE TABLE IF NOT EXISTS sender_profiles (
				sender_key TEXT PRIMARY KEY,
				first_seen TEXT NOT NULL,
				message_count INTEGER NOT NULL,
				display_names TEXT NOT NULL,
				reply_to_domains TEXT NOT NULL
			)
		`,
		selectOne: `
			SELECT sender_key, first_seen, message_count, display_names, reply_to_domains
			FROM sender_profiles WHERE sender_key = ?
		`,
		lookupOne: `
			SELECT sender_key, first_seen, message_count, display_names, reply_to_domains
			FROM sender_profiles WHERE sender_key = ?
		`,
		insertOne: `
			INSERT INTO sender_profiles (sender_key, first_seen, message_count, display_names, reply_to_domains)
			VALUES (?, ?, ?, ?, ?)
		`,
		updateOne: `
			UPDATE sender_profiles
			SET message_count = ?, display_names = ?, reply_to_domains = ?
			WHERE sender_key = ?
		`,
		isDuplicate: func(err error) bool {
			var serr sqlite3.Error
			return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
		},
	}, logger)
}
