package store

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestSnapshotRepository_SaveAndGet(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "0", Sequence: []string{"MOUNTAIN"}}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	at := time.Date(2026, 3, 1, 7, 0, 30, 0, time.UTC)
	saved, err := s.Snapshots().Save(sess.ID, testImage(1280, 720), at)
	if err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if saved.Width != ThumbnailWidth || saved.Height != ThumbnailHeight {
		t.Errorf("thumbnail = %dx%d, want %dx%d", saved.Width, saved.Height, ThumbnailWidth, ThumbnailHeight)
	}

	got, err := s.Snapshots().Get(sess.ID)
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if !got.TakenAt.Equal(at) {
		t.Errorf("TakenAt = %v, want %v", got.TakenAt, at)
	}

	img, err := jpeg.Decode(bytes.NewReader(got.JPEG))
	if err != nil {
		t.Fatalf("stored snapshot is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != ThumbnailWidth || b.Dy() != ThumbnailHeight {
		t.Errorf("decoded size = %dx%d, want %dx%d", b.Dx(), b.Dy(), ThumbnailWidth, ThumbnailHeight)
	}
}

func TestSnapshotRepository_SmallImageNotUpscaled(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "0", Sequence: []string{"PEAK"}}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	saved, err := s.Snapshots().Save(sess.ID, testImage(160, 90), time.Now())
	if err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if saved.Width != 160 || saved.Height != 90 {
		t.Errorf("thumbnail = %dx%d, want 160x90", saved.Width, saved.Height)
	}
}

func TestSnapshotRepository_Errors(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Snapshots().Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Snapshots().Save("missing", nil, time.Now()); err == nil {
		t.Error("expected error for nil image")
	}
	if _, err := s.Snapshots().Save("missing", testImage(10, 10), time.Now()); err == nil {
		t.Error("expected foreign key error for unknown session")
	}
}
