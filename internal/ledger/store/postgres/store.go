// Package postgres persists ledger chains in PostgreSQL. The
// (user_id, sequence) unique constraint is the final arbiter of races; the
// partial (user_id, sync_key) index keeps each synced queue item unique.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"presence/internal/ledger/models"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
	"presence/pkg/platform/tx"
)

const (
	uniqueViolation   = "23505"
	syncKeyConstraint = "ledger_entries_user_sync_key"
)

const entryColumns = `id, user_id, event_id, sequence, previous_hash, payload_kind, payload, hash, recorded_at`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Store) Head(ctx context.Context, userID id.UserID) (*models.Entry, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY sequence DESC LIMIT 1`,
		uuid.UUID(userID))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load ledger head: %w", err)
	}
	return entry, nil
}

func (s *Store) AppendIfMatches(ctx context.Context, entry *models.Entry, expectedPrevHash string) error {
	kind, payload, err := models.EncodePayload(entry.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	return tx.Run(ctx, s.db, nil, func(ctx context.Context) error {
		q := s.q(ctx)
		var headHash string
		var headSeq uint64
		err := q.QueryRowContext(ctx,
			`SELECT hash, sequence FROM ledger_entries WHERE user_id = $1 ORDER BY sequence DESC LIMIT 1 FOR UPDATE`,
			uuid.UUID(entry.UserID)).Scan(&headHash, &headSeq)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock ledger head: %w", err)
		}
		if headHash != expectedPrevHash || entry.Sequence != headSeq+1 {
			return sentinel.ErrConflict
		}

		var syncKey sql.NullString
		if key := models.SyncKey(entry.Payload); key != "" {
			syncKey = sql.NullString{String: key, Valid: true}
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO ledger_entries (`+entryColumns+`, sync_key) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			entry.ID,
			uuid.UUID(entry.UserID),
			uuid.UUID(entry.EventID),
			int64(entry.Sequence), //nolint:gosec // sequence starts at 1
			entry.PreviousHash,
			string(kind),
			payload,
			entry.Hash,
			entry.RecordedAt.UTC(),
			syncKey,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				if pqErr.Constraint == syncKeyConstraint {
					return sentinel.ErrAlreadyUsed
				}
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert ledger entry: %w", err)
		}
		return nil
	})
}

func (s *Store) FindSynced(ctx context.Context, userID id.UserID, queueItemID string) (*models.Entry, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1 AND sync_key = $2`,
		uuid.UUID(userID), queueItemID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find synced entry: %w", err)
	}
	return entry, nil
}

func (s *Store) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY sequence ASC`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		entry   models.Entry
		userID  uuid.UUID
		eventID uuid.UUID
		seq     int64
		kind    string
		payload []byte
	)
	if err := row.Scan(&entry.ID, &userID, &eventID, &seq, &entry.PreviousHash, &kind, &payload, &entry.Hash, &entry.RecordedAt); err != nil {
		return nil, err
	}
	decoded, err := models.DecodePayload(models.PayloadKind(kind), payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	entry.UserID = id.UserID(userID)
	entry.EventID = id.EventID(eventID)
	entry.Sequence = uint64(seq) //nolint:gosec // CHECK (sequence >= 1)
	entry.Payload = decoded
	return &entry, nil
}
