package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/state"
)

// ErrNotFound reports a missing session or snapshot.
var ErrNotFound = errors.New("not found")

// ReadSession returns a session row.
func (s *Store) ReadSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	var resultJSON sql.NullString
	var traceHash sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game, seed, finished, result, trace_hash
		FROM sessions WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Game, &rec.Seed, &rec.Finished, &resultJSON, &traceHash)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("read session: %w", err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		rec.Result, err = unmarshalJSON(resultJSON.String)
		if err != nil {
			return rec, fmt.Errorf("read session result: %w", err)
		}
	}
	rec.TraceHash = traceHash.String
	return rec, nil
}

// ReadTrace reconstructs a session's trace, ordered by logical seq.
func (s *Store) ReadTrace(ctx context.Context, sessionID string) (*engine.Trace, error) {
	rec, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tag, ctx
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	defer rows.Close()

	t := &engine.Trace{Seed: rec.Seed}
	for rows.Next() {
		var e engine.TraceEntry
		var ctxJSON sql.NullString
		if err := rows.Scan(&e.Seq, &e.Tag, &ctxJSON); err != nil {
			return nil, fmt.Errorf("scan trace entry: %w", err)
		}
		if ctxJSON.Valid && ctxJSON.String != "" {
			e.Ctx, err = unmarshalCtx(ctxJSON.String)
			if err != nil {
				return nil, fmt.Errorf("decode trace entry %d: %w", e.Seq, err)
			}
		}
		t.Entries = append(t.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return t, nil
}

// ReadInputs returns the session's resolved choices in resolution order.
func (s *Store) ReadInputs(ctx context.Context, sessionID string) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT choice FROM inputs
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	defer rows.Close()

	var choices []any
	for rows.Next() {
		var choiceJSON string
		if err := rows.Scan(&choiceJSON); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		c, err := unmarshalJSON(choiceJSON)
		if err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return choices, nil
}

// ReadSnapshot returns the latest persisted snapshot at or before seq
// (or the latest overall when seq < 0), with its stored content hash.
func (s *Store) ReadSnapshot(ctx context.Context, sessionID string, seq int64) (*state.Snapshot, string, error) {
	query := `
		SELECT hash, body FROM snapshots
		WHERE session_id = ? AND seq <= ?
		ORDER BY seq DESC LIMIT 1
	`
	args := []any{sessionID, seq}
	if seq < 0 {
		query = `
			SELECT hash, body FROM snapshots
			WHERE session_id = ?
			ORDER BY seq DESC LIMIT 1
		`
		args = []any{sessionID}
	}
	var hash, body string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&hash, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("snapshot for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := state.SnapshotFromJSON([]byte(body))
	if err != nil {
		return nil, "", fmt.Errorf("read snapshot: %w", err)
	}
	return snap, hash, nil
}
