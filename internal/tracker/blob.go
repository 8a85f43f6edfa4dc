package tracker

import (
	"image"

	"gocv.io/x/gocv"
)

// BlobMeasurer finds the largest foreground blob using an adaptive MOG2
// background model. Smaller blobs are ignored every frame.
type BlobMeasurer struct {
	minArea float64
	mog2    gocv.BackgroundSubtractorMOG2
	kernel  gocv.Mat
	mask    gocv.Mat
	opened  gocv.Mat
}

// NewBlobMeasurer creates a measurer with a fresh background model.
func NewBlobMeasurer(config Config) *BlobMeasurer {
	config = config.withDefaults()
	return &BlobMeasurer{
		minArea: config.MinBlobArea,
		mog2:    gocv.NewBackgroundSubtractorMOG2WithParams(config.History, config.VarThreshold, config.DetectShadows),
		kernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(config.OpenKernelSize, config.OpenKernelSize)),
		mask:    gocv.NewMat(),
		opened:  gocv.NewMat(),
	}
}

// Measure updates the background model with frame and returns the bounding
// box center of the largest blob when its area exceeds the minimum.
func (b *BlobMeasurer) Measure(frame gocv.Mat) (Measurement, bool) {
	if frame.Empty() {
		return Measurement{}, false
	}

	if err := b.mog2.Apply(frame, &b.mask); err != nil {
		return Measurement{}, false
	}
	if err := gocv.MorphologyEx(b.mask, &b.opened, gocv.MorphOpen, b.kernel); err != nil {
		return Measurement{}, false
	}

	contours := gocv.FindContours(b.opened, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	largest := -1
	var largestArea float64
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if largest < 0 || area > largestArea {
			largest = i
			largestArea = area
		}
	}

	if largest < 0 || largestArea <= b.minArea {
		return Measurement{}, false
	}

	box := gocv.BoundingRect(contours.At(largest))
	return Measurement{
		Center: boxCenter(box),
		Box:    box,
		Area:   largestArea,
	}, true
}

// Close releases the background model and scratch buffers.
func (b *BlobMeasurer) Close() error {
	b.opened.Close()
	b.mask.Close()
	b.kernel.Close()
	return b.mog2.Close()
}

func boxCenter(r image.Rectangle) Point {
	return Point{
		X: float64(r.Min.X) + float64(r.Dx())/2,
		Y: float64(r.Min.Y) + float64(r.Dy())/2,
	}
}
