package store

import (
	"database/sql"
	"time"
)

// Hit is one popped target.
type Hit struct {
	ID        int64
	SessionID string
	Frame     int64
	X, Y      int
	Score     int // score after this hit
	CreatedAt time.Time
}

// HitRepository provides operations on hits.
type HitRepository struct {
	db *sql.DB
}

// Hits returns the hit repository for this store.
func (s *Store) Hits() *HitRepository {
	return &HitRepository{db: s.db}
}

// Record inserts h and fills in its ID and CreatedAt.
func (r *HitRepository) Record(h *Hit) error {
	h.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO hits (session_id, frame, x, y, score, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		h.SessionID, h.Frame, h.X, h.Y, h.Score, h.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

// ListBySession returns a session's hits in the order they happened.
func (r *HitRepository) ListBySession(sessionID string) ([]*Hit, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame, x, y, score, created_at
		 FROM hits WHERE session_id = ? ORDER BY frame, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		h := &Hit{}
		if err := rows.Scan(&h.ID, &h.SessionID, &h.Frame, &h.X, &h.Y, &h.Score, &h.CreatedAt); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hits, nil
}

// CountBySession returns how many hits a session recorded.
func (r *HitRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM hits WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
