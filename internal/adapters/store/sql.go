package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
)

// sqlDialect captures the per-engine differences the shared SQL store needs.
type sqlDialect struct {
	name        string
	createTable string
	selectOne   string // SELECT with row lock where the engine supports it
	lookupOne   string // plain SELECT for reads outside a transaction
	insertOne   string
	updateOne   string
	// isDuplicate reports whether err is a unique-constraint violation,
	// which signals a lost insert race with a concurrent first sighting.
	isDuplicate func(err error) bool
}

// SQLStore is the reputation store over any database/sql backend. Record
// runs in a transaction with a row lock (or relies on the engine's write
// serialization) and retries once when a concurrent insert wins the race
// for a new sender.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
	logger  *zap.Logger
}

func newSQLStore(db *sql.DB, dialect sqlDialect, logger *zap.Logger) (*SQLStore, error) {
	if _, err := db.Exec(dialect.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sender_profiles table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect, logger: logger}, nil
}

// Record implements core.ReputationStore.
func (s *SQLStore) Record(ctx context.Context, senderKey string, obs core.Observation) (*core.SenderProfile, error) {
	// One retry: a concurrent analysis may insert the sender between our
	// empty select and our insert. The loser re-reads and updates.
	for attempt := 0; ; attempt++ {
		prior, err := s.recordOnce(ctx, senderKey, obs)
		if err != nil && attempt == 0 && s.dialect.isDuplicate(err) {
			continue
		}
		return prior, err
	}
}

func (s *SQLStore) recordOnce(ctx context.Context, senderKey string, obs core.Observation) (*core.SenderProfile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prior, err := scanProfile(tx.QueryRowContext(ctx, s.dialect.selectOne, senderKey))
	if err != nil {
		return nil, err
	}

	if prior == nil {
		p := newProfile(senderKey, obs)
		names, domains, err := marshalSets(p.DisplayNamesSeen, p.ReplyToDomainsSeen)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, s.dialect.insertOne,
			senderKey, p.FirstSeen.UTC().Format(time.RFC3339Nano), p.MessageCount, names, domains); err != nil {
			return nil, fmt.Errorf("failed to insert sender profile: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return nil, nil
	}

	updated := snapshotProfile(prior)
	applyObservation(updated, obs)
	names, domains, err := marshalSets(updated.DisplayNamesSeen, updated.ReplyToDomainsSeen)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.updateOne,
		updated.MessageCount, names, domains, senderKey); err != nil {
		return nil, fmt.Errorf("failed to update sender profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return prior, nil
}

// Lookup implements core.ReputationStore.
func (s *SQLStore) Lookup(ctx context.Context, senderKey string) (*core.SenderProfile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, s.dialect.lookupOne, senderKey))
}

// Close implements core.ReputationStore.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func scanProfile(row *sql.Row) (*core.SenderProfile, error) {
	var (
		p              core.SenderProfile
		firstSeen      string
		names, domains []byte
	)
	err := row.Scan(&p.SenderKey, &firstSeen, &p.MessageCount, &names, &domains)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sender profile: %w", err)
	}
	if p.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err != nil {
		return nil, fmt.Errorf("failed to parse first_seen: %w", err)
	}
	if err := json.Unmarshal(names, &p.DisplayNamesSeen); err != nil {
		return nil, fmt.Errorf("failed to decode display names: %w", err)
	}
	if err := json.Unmarshal(domains, &p.ReplyToDomainsSeen); err != nil {
		return nil, fmt.Errorf("failed to decode reply-to domains: %w", err)
	}
	return &p, nil
}

func marshalSets(names, domains []string) ([]byte, []byte, error) {
	if names == nil {
		names = []string{}
	}
	if domains == nil {
		domains = []string{}
	}
	n, err := json.Marshal(names)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode display names: %w", err)
	}
	d, err := json.Marshal(domains)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode reply-to domains: %w", err)
	}
	return n, d, nil
}
