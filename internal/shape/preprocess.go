package shape

import (
	"image"

	"gocv.io/x/gocv"
)

// Preprocessing parameters for the region of interest.
const (
	// BlurSize is the Gaussian kernel size applied before thresholding.
	BlurSize = 5
	// ThresholdBlockSize is the neighbourhood used by the adaptive threshold.
	ThresholdBlockSize = 11
	// ThresholdC is subtracted from the weighted neighbourhood mean.
	ThresholdC = 2
	// OpenKernelSize is the structuring element used to remove speckles.
	OpenKernelSize = 3
)

// Preprocess turns a grayscale image into contours: Gaussian blur, inverse
// adaptive threshold, morphological opening, then a full-hierarchy contour
// search with simple chain approximation. A failing step yields no
// contours. The caller closes the result.
func Preprocess(gray gocv.Mat) gocv.PointsVector {
	blurred := gocv.NewMat()
	defer blurred.Close()
	if err := gocv.GaussianBlur(gray, &blurred, image.Pt(BlurSize, BlurSize), 0, 0, gocv.BorderDefault); err != nil {
		return gocv.NewPointsVector()
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	if err := gocv.AdaptiveThreshold(blurred, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, ThresholdBlockSize, ThresholdC); err != nil {
		return gocv.NewPointsVector()
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(OpenKernelSize, OpenKernelSize))
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	if err := gocv.MorphologyEx(thresh, &opened, gocv.MorphOpen, kernel); err != nil {
		return gocv.NewPointsVector()
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	return gocv.FindContoursWithParams(opened, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
}

// ROIDetector classifies the shape drawn inside a region of a color frame.
type ROIDetector struct {
	classifier *Classifier
}

// NewROIDetector creates a detector backed by the given classifier.
func NewROIDetector(c *Classifier) *ROIDetector {
	return &ROIDetector{classifier: c}
}

// Detect crops roi out of frame, preprocesses it and classifies the result.
// The returned polygon is in frame coordinates.
func (d *ROIDetector) Detect(frame gocv.Mat, roi image.Rectangle) (Detection, bool) {
	if frame.Empty() {
		return Detection{}, false
	}
	roi = roi.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if roi.Empty() {
		return Detection{}, false
	}

	region := frame.Region(roi)
	defer region.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	var err error
	if region.Channels() > 1 {
		err = gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)
	} else {
		err = region.CopyTo(&gray)
	}
	if err != nil {
		return Detection{}, false
	}

	contours := Preprocess(gray)
	defer contours.Close()

	det, ok := d.classifier.Classify(contours, roi.Dx(), roi.Dy())
	if !ok {
		return Detection{}, false
	}
	return det.Offset(roi.Min), true
}
