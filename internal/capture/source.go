// Package capture provides frame sources, lens correction and display
// output using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("video source is not open")

	// ErrFrameUnavailable is returned when a single read fails. The source
	// stays open and the next read may succeed.
	ErrFrameUnavailable = errors.New("frame unavailable")
)

// Source defines the interface for frame sources.
type Source interface {
	Open() error
	Close() error
	// Read returns the next frame. The caller is responsible for closing it.
	Read() (*gocv.Mat, error)
	IsOpen() bool
	Name() string
}

// videoSource reads frames from a local device or a file/stream URL.
type videoSource struct {
	device  int
	url     string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewSource parses spec into a Source. A numeric spec selects a local
// device; anything else is opened as a file path or stream URL.
func NewSource(spec string) (Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty video source")
	}

	if id, err := strconv.Atoi(spec); err == nil {
		if id < 0 {
			return nil, fmt.Errorf("invalid device index %d", id)
		}
		return &videoSource{device: id}, nil
	}
	return &videoSource{device: -1, url: spec}, nil
}

// Name returns the device index or URL.
func (s *videoSource) Name() string {
	if s.url != "" {
		return s.url
	}
	return strconv.Itoa(s.device)
}

// Open opens the underlying capture and keeps the frame buffer minimal so
// reads return the most recent frame.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if s.url != "" {
		capture, err = gocv.OpenVideoCaptureWithAPI(s.url, gocv.VideoCaptureFFmpeg)
	} else {
		capture, err = gocv.OpenVideoCapture(s.device)
	}
	if err != nil {
		return fmt.Errorf("failed to open video source %s: %w", s.Name(), err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("failed to open video source %s", s.Name())
	}

	capture.Set(gocv.VideoCaptureBufferSize, 1)

	s.capture = capture
	s.running = true

	return nil
}

// Close releases the capture.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// Read reads a single frame.
func (s *videoSource) Read() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrFrameUnavailable
	}

	return &mat, nil
}

// IsOpen returns true if the source is open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
