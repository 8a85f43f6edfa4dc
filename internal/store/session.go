package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Outcome is how a session ended.
type Outcome string

const (
	// OutcomeRunning marks a session that has not finished.
	OutcomeRunning Outcome = "running"
	// OutcomeUnlocked marks a session that reached the unlock state.
	OutcomeUnlocked Outcome = "unlocked"
	// OutcomeAborted marks a session stopped by the user or a signal.
	OutcomeAborted Outcome = "aborted"
	// OutcomeFailed marks a session stopped by an error.
	OutcomeFailed Outcome = "failed"
)

// Session is one run of the alarm.
type Session struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Sequence   []string   `json:"sequence"`
	Outcome    Outcome    `json:"outcome"`
	Resets     int        `json:"resets"`
	StartedAt  time.Time  `json:"started_at"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new running session. ID and StartedAt are filled in
// when empty.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	sess.Outcome = OutcomeRunning

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, sequence, outcome, resets, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Source, strings.Join(sess.Sequence, ","), string(sess.Outcome), sess.Resets, sess.StartedAt,
	)
	return err
}

// Get retrieves a session by its ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, source, sequence, outcome, resets, started_at, unlocked_at, finished_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	query := `SELECT id, source, sequence, outcome, resets, started_at, unlocked_at, finished_at
		 FROM sessions ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
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

	return sessions, rows.Err()
}

// MarkUnlocked records the unlock time.
func (r *SessionRepository) MarkUnlocked(id string, at time.Time) error {
	return r.exec(`UPDATE sessions SET unlocked_at = ? WHERE id = ?`, at, id)
}

// Finish records the end of a session.
func (r *SessionRepository) Finish(id string, outcome Outcome, at time.Time) error {
	return r.exec(`UPDATE sessions SET outcome = ?, finished_at = ? WHERE id = ?`, string(outcome), at, id)
}

// IncrementResets counts one sequence reset.
func (r *SessionRepository) IncrementResets(id string) error {
	return r.exec(`UPDATE sessions SET resets = resets + 1 WHERE id = ?`, id)
}

// Delete removes a session and, by cascade, its transitions and snapshot.
func (r *SessionRepository) Delete(id string) error {
	return r.exec(`DELETE FROM sessions WHERE id = ?`, id)
}

func (r *SessionRepository) exec(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
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
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var (
		sequence string
		outcome  string
		unlocked sql.NullTime
		finished sql.NullTime
	)

	err := row.Scan(&sess.ID, &sess.Source, &sequence, &outcome, &sess.Resets, &sess.StartedAt, &unlocked, &finished)
	if err != nil {
		return nil, err
	}

	if sequence != "" {
		sess.Sequence = strings.Split(sequence, ",")
	}
	sess.Outcome = Outcome(outcome)
	if unlocked.Valid {
		t := unlocked.Time
		sess.UnlockedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		sess.FinishedAt = &t
	}
	return sess, nil
}
