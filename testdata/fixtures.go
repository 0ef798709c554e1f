// Package testdata builds frames and pose sequences shared by tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/trainiq/internal/capture"
	"github.com/ayusman/trainiq/internal/pose"
)

const (
	FrameWidth  = 640
	FrameHeight = 480
)

// BlankFrames returns n black BGR frames. Close them with CloseFrames.
func BlankFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}

// MovingFrames returns n frames with a white square that shifts each frame,
// so consecutive frames always differ.
func MovingFrames(n int) []*gocv.Mat {
	frames := BlankFrames(n)
	for i, f := range frames {
		x := (i * 80) % (FrameWidth - 120)
		gocv.Rectangle(f, image.Rect(x, 100, x+120, 300), color.RGBA{R: 255, G: 255, B: 255}, -1)
	}
	return frames
}

// DriftFrames returns three frames where each step adds one 80x80 square.
// Each step changes a few percent of the picture; the first and last frames
// differ by about twice as much.
func DriftFrames() []*gocv.Mat {
	frames := BlankFrames(3)
	first := image.Rect(100, 100, 180, 180)
	second := image.Rect(400, 250, 480, 330)
	white := color.RGBA{R: 255, G: 255, B: 255}
	gocv.Rectangle(frames[1], first, white, -1)
	gocv.Rectangle(frames[2], first, white, -1)
	gocv.Rectangle(frames[2], second, white, -1)
	return frames
}

// CloseFrames releases frames created by this package.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// MockCamera returns a looping camera over n blank frames and a cleanup func.
func MockCamera(n int) (*capture.MockCamera, func()) {
	frames := BlankFrames(n)
	return capture.NewMockCamera(frames, true), func() { CloseFrames(frames) }
}

// PushUpReps returns a landmark sequence of full push-ups: extended, halfway,
// bottom, halfway, extended per rep.
func PushUpReps(reps int) []pose.Landmarks {
	var seq []pose.Landmarks
	for i := 0; i < reps; i++ {
		for _, elbow := range []float64{170, 130, 90, 130, 170} {
			seq = append(seq, pose.PushUpPose(elbow))
		}
	}
	return seq
}

// SquatReps returns a landmark sequence of full squats from standing.
func SquatReps(reps int) []pose.Landmarks {
	var seq []pose.Landmarks
	for i := 0; i < reps; i++ {
		for _, angle := range []float64{175, 130, 90, 130, 175} {
			seq = append(seq, pose.SquatPose(angle, angle))
		}
	}
	return seq
}
