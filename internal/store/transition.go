package store

import (
	"database/sql"
	"time"
)

// Transition is a recorded state change.
type Transition struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	At        time.Time `json:"at"`
}

// TransitionRepository provides access to state transitions.
type TransitionRepository struct {
	db *sql.DB
}

// Transitions returns the transition repository for this store.
func (s *Store) Transitions() *TransitionRepository {
	return &TransitionRepository{db: s.db}
}

// Record inserts a transition and sets its ID.
func (r *TransitionRepository) Record(t *Transition) error {
	result, err := r.db.Exec(
		`INSERT INTO transitions (session_id, from_state, to_state, at) VALUES (?, ?, ?, ?)`,
		t.SessionID, t.From, t.To, t.At,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// ListBySession returns a session's transitions in the order they happened.
func (r *TransitionRepository) ListBySession(sessionID string) ([]*Transition, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, from_state, to_state, at
		 FROM transitions WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*Transition
	for rows.Next() {
		t := &Transition{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.From, &t.To, &t.At); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}

	return transitions, rows.Err()
}
