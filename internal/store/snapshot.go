package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// Thumbnail bounds for stored snapshots.
const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 180
)

// Snapshot is the stored thumbnail of the frame that unlocked a session.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	TakenAt   time.Time `json:"taken_at"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	JPEG      []byte    `json:"-"`
}

// SnapshotRepository provides access to unlock snapshots.
type SnapshotRepository struct {
	db *sql.DB
}

// Snapshots returns the snapshot repository for this store.
func (s *Store) Snapshots() *SnapshotRepository {
	return &SnapshotRepository{db: s.db}
}

// Save scales img down to the thumbnail bounds, encodes it as JPEG and
// stores it for the session, replacing any previous snapshot.
func (r *SnapshotRepository) Save(sessionID string, img image.Image, at time.Time) (*Snapshot, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty snapshot image")
	}

	thumb := imaging.Fit(img, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	snap := &Snapshot{
		SessionID: sessionID,
		TakenAt:   at,
		Width:     thumb.Bounds().Dx(),
		Height:    thumb.Bounds().Dy(),
		JPEG:      buf.Bytes(),
	}

	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO snapshots (session_id, taken_at, width, height, image)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.SessionID, snap.TakenAt, snap.Width, snap.Height, snap.JPEG,
	)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Get retrieves the snapshot of a session.
func (r *SnapshotRepository) Get(sessionID string) (*Snapshot, error) {
	snap := &Snapshot{}

	err := r.db.QueryRow(
		`SELECT session_id, taken_at, width, height, image FROM snapshots WHERE session_id = ?`,
		sessionID,
	).Scan(&snap.SessionID, &snap.TakenAt, &snap.Width, &snap.Height, &snap.JPEG)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return snap, nil
}
