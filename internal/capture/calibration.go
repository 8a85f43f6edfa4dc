package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
)

// Calibration holds the camera intrinsics produced by an offline
// checkerboard calibration.
type Calibration struct {
	CameraMatrix [3][3]float64 `json:"camera_matrix"`
	DistCoeffs   []float64     `json:"dist_coeffs"`
}

// LoadCalibration reads calibration parameters from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	var cal Calibration

	data, err := os.ReadFile(path)
	if err != nil {
		return cal, fmt.Errorf("failed to read calibration: %w", err)
	}
	if err := json.Unmarshal(data, &cal); err != nil {
		return cal, fmt.Errorf("failed to parse calibration: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return cal, err
	}
	return cal, nil
}

// Validate rejects matrices that cannot describe a pinhole camera.
func (c Calibration) Validate() error {
	if c.CameraMatrix[0][0] <= 0 || c.CameraMatrix[1][1] <= 0 {
		return errors.New("calibration focal lengths must be positive")
	}
	switch len(c.DistCoeffs) {
	case 4, 5, 8, 12, 14:
	default:
		return fmt.Errorf("unsupported number of distortion coefficients: %d", len(c.DistCoeffs))
	}
	return nil
}

// Undistorter remaps frames of a fixed size with precomputed lens
// correction maps and crops them to the valid region.
type Undistorter struct {
	size     image.Point
	crop     image.Rectangle
	mapX     gocv.Mat
	mapY     gocv.Mat
	remapped gocv.Mat
}

// NewUndistorter computes the correction maps for frames of the given size.
// The optimal new camera matrix keeps all source pixels (alpha 1).
func NewUndistorter(cal Calibration, size image.Point) (*Undistorter, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", size)
	}

	camera := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer camera.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			camera.SetDoubleAt(r, c, cal.CameraMatrix[r][c])
		}
	}

	dist := gocv.NewMatWithSize(1, len(cal.DistCoeffs), gocv.MatTypeCV64F)
	defer dist.Close()
	for i, v := range cal.DistCoeffs {
		dist.SetDoubleAt(0, i, v)
	}

	optimal, roi := gocv.GetOptimalNewCameraMatrixWithParams(camera, dist, size, 1, size, false)
	defer optimal.Close()

	rectify := gocv.NewMat()
	defer rectify.Close()

	u := &Undistorter{
		size:     size,
		crop:     roi.Intersect(image.Rect(0, 0, size.X, size.Y)),
		mapX:     gocv.NewMat(),
		mapY:     gocv.NewMat(),
		remapped: gocv.NewMat(),
	}
	if err := gocv.InitUndistortRectifyMap(camera, dist, rectify, optimal, size, int(gocv.MatTypeCV32FC1), u.mapX, u.mapY); err != nil {
		u.Close()
		return nil, fmt.Errorf("failed to compute undistort maps: %w", err)
	}

	if u.crop.Empty() {
		u.crop = image.Rect(0, 0, size.X, size.Y)
	}
	return u, nil
}

// Size returns the frame size the maps were computed for.
func (u *Undistorter) Size() image.Point {
	return u.size
}

// Crop returns the valid region kept after remapping.
func (u *Undistorter) Crop() image.Rectangle {
	return u.crop
}

// Apply corrects src into dst. Frames of a different size are copied through.
func (u *Undistorter) Apply(src gocv.Mat, dst *gocv.Mat) error {
	if src.Cols() != u.size.X || src.Rows() != u.size.Y {
		return src.CopyTo(dst)
	}

	if err := gocv.Remap(src, &u.remapped, &u.mapX, &u.mapY, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{}); err != nil {
		return fmt.Errorf("failed to undistort frame: %w", err)
	}

	region := u.remapped.Region(u.crop)
	defer region.Close()
	return region.CopyTo(dst)
}

// Close releases the correction maps.
func (u *Undistorter) Close() error {
	u.mapX.Close()
	u.mapY.Close()
	u.remapped.Close()
	return nil
}
