package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlDuplicateEntry = 1062

// NewMySQLStore opens a MySQL-backed reputation store. The select takes a
// row lock so concurrent updates to one sender serialize inside the engine.
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	return newSQLStore(db, sqlDialect{
		name: "mysql",
		createTable: `
			CREATE TABLE IF NOT EXISTS sender_profiles (
				sender_key VARCHAR(320) PRIMARY KEY,
				first_seen VARCHAR(64) NOT NULL,
				message_count BIGINT NOT NULL,
				display_names TEXT NOT NULL,
				reply_to_domains TEXT NOT NULL
			)
		`,
		selectOne: `
			SELECT sender_key, first_seen, message_count, display_names, reply_to_domains
			FROM sender_profiles WHERE sender_key = ? FOR UPDATE
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
			var merr *mysql.MySQLError
			return errors.As(err, &merr) && merr.Number == mysqlDuplicateEntry
		},
	}, logger)
}
