package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// EndReason records why a session stopped.
type EndReason string

const (
	// EndQuit means the player pressed the quit key.
	EndQuit EndReason = "quit"
	// EndFrameUnavailable means the camera stopped delivering frames.
	EndFrameUnavailable EndReason = "frame_unavailable"
	// EndCancelled means the process was signalled or quit from the tray.
	EndCancelled EndReason = "cancelled"
	// EndReplayExhausted means a landmark recording ran out.
	EndReplayExhausted EndReason = "replay_exhausted"
	// EndError covers every other failure.
	EndError EndReason = "error"
)

// Session is one run of the game.
type Session struct {
	ID        string
	Source    string
	StartedAt time.Time
	EndedAt   *time.Time
	Score     int
	Frames    int64
	EndReason EndReason
}

// Finished reports whether the session has been closed out.
func (s *Session) Finished() bool {
	return s.EndedAt != nil
}

// SessionRepository provides operations on sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, source, started_at, ended_at, score, frames, end_reason`

// Create inserts a new, unfinished session. StartedAt is set when zero.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, started_at, score, frames, end_reason)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Source, sess.StartedAt, sess.Score, sess.Frames, string(sess.EndReason),
	)
	return err
}

// Finish records the final score, frame count and end reason.
func (r *SessionRepository) Finish(id string, score int, frames int64, reason EndReason) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, score = ?, frames = ?, end_reason = ? WHERE id = ?`,
		time.Now(), score, frames, string(reason), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A non-positive limit returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Best returns the highest scoring session. Ties go to the earliest.
func (r *SessionRepository) Best() (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT ` + sessionColumns + ` FROM sessions ORDER BY score DESC, started_at ASC LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Delete removes a session and its hits.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var endedAt sql.NullTime
	var reason string

	if err := row.Scan(&sess.ID, &sess.Source, &sess.StartedAt, &endedAt, &sess.Score, &sess.Frames, &reason); err != nil {
		return nil, err
	}

	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	sess.EndReason = EndReason(reason)
	return sess, nil
}
