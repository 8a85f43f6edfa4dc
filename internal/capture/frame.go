package capture

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
)

// Normalizer turns raw source frames into display-sized frames, applying
// lens correction when a calibration is configured. The correction maps are
// built from the size of the first frame seen.
type Normalizer struct {
	size        image.Point
	calibration *Calibration
	undistorter *Undistorter
	corrected   gocv.Mat
}

// NewNormalizer creates a Normalizer resizing to size. cal may be nil.
func NewNormalizer(size image.Point, cal *Calibration) *Normalizer {
	return &Normalizer{
		size:        size,
		calibration: cal,
		corrected:   gocv.NewMat(),
	}
}

// Init builds the correction maps for frames of the given size. It is a
// no-op without a calibration or when the maps already exist.
func (n *Normalizer) Init(frameSize image.Point) error {
	if n.calibration == nil || n.undistorter != nil {
		return nil
	}

	u, err := NewUndistorter(*n.calibration, frameSize)
	if err != nil {
		return err
	}
	n.undistorter = u
	log.Printf("Lens correction enabled for %dx%d, crop %v", frameSize.X, frameSize.Y, u.Crop())
	return nil
}

// Apply writes the normalized version of src to dst.
func (n *Normalizer) Apply(src gocv.Mat, dst *gocv.Mat) error {
	in := src
	if n.calibration != nil {
		if err := n.Init(image.Pt(src.Cols(), src.Rows())); err != nil {
			return err
		}
		if err := n.undistorter.Apply(src, &n.corrected); err != nil {
			return err
		}
		in = n.corrected
	}

	if in.Cols() == n.size.X && in.Rows() == n.size.Y {
		if err := in.CopyTo(dst); err != nil {
			return fmt.Errorf("failed to copy frame: %w", err)
		}
		return nil
	}
	if err := gocv.Resize(in, dst, n.size, 0, 0, gocv.InterpolationLinear); err != nil {
		return fmt.Errorf("failed to resize frame to %dx%d: %w", n.size.X, n.size.Y, err)
	}
	return nil
}

// Close releases the correction maps and buffers.
func (n *Normalizer) Close() error {
	if n.undistorter != nil {
		n.undistorter.Close()
	}
	n.corrected.Close()
	return nil
}
