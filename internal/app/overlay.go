package app

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/wakegate/internal/gesture"
)

// Overlay colors.
var (
	colorROI      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorMatch    = color.RGBA{G: 255, A: 255}
	colorMismatch = color.RGBA{R: 255, A: 255}
	colorInfo     = color.RGBA{R: 255, G: 255, A: 255}
	colorTracking = color.RGBA{B: 255, A: 255}
	colorBar      = color.RGBA{R: 50, G: 50, B: 50, A: 255}
)

const (
	progressBarWidth = 300
	bigFontScale     = 10
	bigThickness     = 10
)

// drawOverlay annotates frame with the snapshot for the display and stream.
func drawOverlay(frame *gocv.Mat, snap gesture.Snapshot, roi image.Rectangle) {
	width, height := frame.Cols(), frame.Rows()

	switch snap.State {
	case gesture.StateLocked:
		gocv.Rectangle(frame, roi, colorROI, 2)
		if d := snap.Detection; d != nil && len(d.Polygon) > 0 {
			c := colorMismatch
			if snap.Matched {
				c = colorMatch
			}
			pts := gocv.NewPointsVectorFromPoints([][]image.Point{d.Polygon})
			gocv.Polylines(frame, pts, true, c, 3)
			pts.Close()
			gocv.PutText(frame, string(d.Label), d.Bounds.Min.Sub(image.Pt(0, 10)), gocv.FontHersheySimplex, 0.8, c, 2)
		}
		gocv.PutText(frame, fmt.Sprintf("Sequence: %d/%d", snap.Detected, snap.Expected),
			image.Pt(roi.Min.X, roi.Max.Y+35), gocv.FontHersheySimplex, 1, colorInfo, 2)
		if snap.SequenceReset {
			gocv.PutText(frame, "Wrong shape, sequence reset", image.Pt(roi.Min.X, roi.Min.Y-15),
				gocv.FontHersheySimplex, 0.9, colorMismatch, 2)
		}

	case gesture.StateCountdown:
		drawCountdown(frame, snap.Remaining, "Starting tracking...")

	case gesture.StateTracking:
		gocv.PutText(frame, "GET OUT OF BED", image.Pt(50, 50), gocv.FontHersheySimplex, 1, colorTracking, 2)
		if est := snap.Estimate; est != nil && est.Active && snap.Initial != nil {
			center := image.Pt(int(est.Position.X), int(est.Position.Y))
			gocv.Line(frame, center.Sub(image.Pt(10, 0)), center.Add(image.Pt(10, 0)), colorMatch, 2)
			gocv.Line(frame, center.Sub(image.Pt(0, 10)), center.Add(image.Pt(0, 10)), colorMatch, 2)

			half := image.Pt(est.Width/2, est.Height/2)
			gocv.Rectangle(frame, image.Rectangle{Min: center.Sub(half), Max: center.Add(half)}, colorMatch, 2)

			bar := image.Rect(50, 100, 50+progressBarWidth, 130)
			gocv.Rectangle(frame, bar, colorBar, -1)
			filled := bar
			filled.Max.X = bar.Min.X + int(progressBarWidth*snap.Progress)
			gocv.Rectangle(frame, filled, colorMatch, -1)
		}

	case gesture.StateUnlocked:
		gocv.PutText(frame, "ALARM DISABLED", image.Pt(10, height-80), gocv.FontHersheySimplex, 1, colorTracking, 2)
		drawCountdown(frame, snap.Remaining, "Exiting...")
	}

	gocv.PutText(frame, fmt.Sprintf("FPS: %.2f", snap.FPS), image.Pt(width-150, 30),
		gocv.FontHersheySimplex, 0.7, colorInfo, 2)
}

// drawCountdown centers the remaining seconds with a caption below.
func drawCountdown(frame *gocv.Mat, remaining int, caption string) {
	if remaining < 0 {
		remaining = 0
	}
	text := strconv.Itoa(remaining)
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, bigFontScale, bigThickness)
	org := image.Pt((frame.Cols()-size.X)/2, (frame.Rows()+size.Y)/2)

	gocv.PutText(frame, text, org, gocv.FontHersheySimplex, bigFontScale, colorInfo, bigThickness)
	gocv.PutText(frame, caption, org.Add(image.Pt(-250, 100)), gocv.FontHersheySimplex, 2, colorInfo, 3)
}
