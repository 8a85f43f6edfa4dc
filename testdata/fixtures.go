// Package testdata renders synthetic camera frames for tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Default frame size, matching the display size.
const (
	FrameWidth  = 1280
	FrameHeight = 720
)

var (
	paper = gocv.NewScalar(255, 255, 255, 0)
	ink   = color.RGBA{A: 255}
)

// BlankFrame returns a white BGR frame of the given size.
func BlankFrame(width, height int) gocv.Mat {
	frame := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	frame.SetTo(paper)
	return frame
}

// DrawnFrame returns a white frame with poly outlined in black, as if drawn
// on a sheet of paper held up to the camera.
func DrawnFrame(width, height int, poly []image.Point) gocv.Mat {
	frame := BlankFrame(width, height)
	if len(poly) == 0 {
		return frame
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pts.Close()
	gocv.Polylines(&frame, pts, true, ink, 4)
	return frame
}

// Square returns the corners of an axis-aligned square centered at c.
func Square(c image.Point, side int) []image.Point {
	h := side / 2
	return []image.Point{
		{c.X - h, c.Y - h},
		{c.X + h, c.Y - h},
		{c.X + h, c.Y + h},
		{c.X - h, c.Y + h},
	}
}

// Center returns the center of r.
func Center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}
