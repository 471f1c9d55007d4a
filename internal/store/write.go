package store

import (
	"context"
	"fmt"

	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/state"
)

// SessionRecord is the per-session row: identity, outcome, and the
// trace's content hash.
type SessionRecord struct {
	ID        string
	Game      string
	Seed      int64
	Finished  bool
	Result    any
	TraceHash string
}

// WriteSession inserts or refreshes a session row.
func (s *Store) WriteSession(ctx context.Context, rec SessionRecord) error {
	resultJSON, err := marshalJSON(rec.Result)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, game, seed, finished, result, trace_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished = excluded.finished,
			result = excluded.result,
			trace_hash = excluded.trace_hash
	`, rec.ID, rec.Game, rec.Seed, rec.Finished, resultJSON, rec.TraceHash)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteTrace appends a session's trace entries in one transaction.
// Duplicate (session, seq) pairs are silently ignored so re-persisting a
// longer trace stays idempotent.
func (s *Store) WriteTrace(ctx context.Context, sessionID string, t *engine.Trace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, tag, ctx)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	defer stmt.Close()

	for _, e := range t.Entries {
		ctxJSON, err := marshalJSON(e.Ctx)
		if err != nil {
			return fmt.Errorf("write trace seq %d: %w", e.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, e.Seq, e.Tag, ctxJSON); err != nil {
			return fmt.Errorf("write trace seq %d: %w", e.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// WriteSnapshot persists a state image at a logical seq.
func (s *Store) WriteSnapshot(ctx context.Context, sessionID string, seq int64, snap *state.Snapshot) error {
	body, err := snap.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	hash, err := snap.Hash()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, seq, hash, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, sessionID, seq, hash, string(body))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// WriteInputs persists the session's resolved choices in order.
func (s *Store) WriteInputs(ctx context.Context, sessionID string, choices []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write inputs: %w", err)
	}
	defer tx.Rollback()

	for i, c := range choices {
		choiceJSON, err := marshalJSON(c)
		if err != nil {
			return fmt.Errorf("write input %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inputs (session_id, idx, choice)
			VALUES (?, ?, ?)
			ON CONFLICT(session_id, idx) DO NOTHING
		`, sessionID, i, choiceJSON); err != nil {
			return fmt.Errorf("write input %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write inputs: %w", err)
	}
	return nil
}
