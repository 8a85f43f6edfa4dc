package capture

import "gocv.io/x/gocv"

// QuitKey stops the loop when pressed in the display window.
const QuitKey = 'q'

// Display shows processed frames and reports key presses.
type Display interface {
	Show(frame gocv.Mat)
	// Key polls the keyboard, returning -1 when no key was pressed.
	Key() int
	Close() error
}

// Window is a Display backed by an OpenCV highgui window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show draws frame in the window. It is not visible until Key is polled.
func (w *Window) Show(frame gocv.Mat) {
	w.window.IMShow(frame)
}

// Key pumps window events for 1ms and returns the pressed key, or -1.
func (w *Window) Key() int {
	return w.window.WaitKey(1)
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Headless is a Display that discards frames, for runs without a screen.
type Headless struct{}

// NewHeadless returns a Display that shows nothing.
func NewHeadless() Headless {
	return Headless{}
}

// Show discards the frame.
func (Headless) Show(gocv.Mat) {}

// Key never reports a key press.
func (Headless) Key() int { return -1 }

// Close is a no-op.
func (Headless) Close() error { return nil }

// QuitRequested reports whether key asks the loop to stop.
func QuitRequested(key int) bool {
	return key == QuitKey || key == 'Q'
}
