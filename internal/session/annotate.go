package session

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/pose"
)

var (
	colorIdle       = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorTransition = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorSkeleton   = color.RGBA{R: 37, G: 150, B: 190, A: 0}
	colorText       = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	colorPanel      = color.RGBA{R: 0, G: 0, B: 0, A: 0}
)

const (
	barWidth  = 24
	barMargin = 20
)

// annotate draws the skeleton for the profile's joints, per-side progress
// bars and the running count onto frame. The accent colour is green on the
// frame where a half-rep fired and red otherwise.
func annotate(frame *gocv.Mat, profile exercise.Profile, lm pose.Landmarks, m exercise.Measurement, state exercise.State, detected, transitioned bool) {
	accent := colorIdle
	if transitioned {
		accent = colorTransition
	}

	if detected {
		for _, joints := range [][]exercise.Joint{profile.Left, profile.Right} {
			for _, j := range joints {
				drawJoint(frame, lm, j, m.Angles[j.Name])
			}
		}
	}

	w, h := frame.Cols(), frame.Rows()
	top, bottom := h/4, h-h/4

	drawBar(frame, image.Rect(barMargin, top, barMargin+barWidth, bottom), m.Left, accent)
	drawBar(frame, image.Rect(w-barMargin-barWidth, top, w-barMargin, bottom), m.Right, accent)

	gocv.Rectangle(frame, image.Rect(0, 0, 220, 70), colorPanel, -1)
	gocv.PutText(frame, fmt.Sprintf("%s %.1f", state.Mode, state.Count),
		image.Pt(10, 32), gocv.FontHersheySimplex, 0.9, accent, 2)
	status := state.Direction.String()
	if !detected {
		status = "NO POSE"
	}
	gocv.PutText(frame, status, image.Pt(10, 60), gocv.FontHersheySimplex, 0.6, colorText, 1)
}

func drawJoint(frame *gocv.Mat, lm pose.Landmarks, j exercise.Joint, angle float64) {
	a, okA := lm.Get(j.A)
	v, okV := lm.Get(j.Vertex)
	b, okB := lm.Get(j.B)
	if !okA || !okV || !okB {
		return
	}

	pa, pv, pb := toPixel(a), toPixel(v), toPixel(b)
	gocv.Line(frame, pa, pv, colorSkeleton, 3)
	gocv.Line(frame, pv, pb, colorSkeleton, 3)
	for _, p := range []image.Point{pa, pv, pb} {
		gocv.Circle(frame, p, 6, colorSkeleton, -1)
	}
	gocv.PutText(frame, fmt.Sprintf("%.0f", angle), pv.Add(image.Pt(10, -10)),
		gocv.FontHersheyPlain, 1.4, colorText, 2)
}

// drawBar fills r from the bottom in proportion to pct.
func drawBar(frame *gocv.Mat, r image.Rectangle, pct int, accent color.RGBA) {
	gocv.Rectangle(frame, r, colorText, 2)
	fill := r.Dy() * pct / 100
	if fill > 0 {
		gocv.Rectangle(frame, image.Rect(r.Min.X, r.Max.Y-fill, r.Max.X, r.Max.Y), accent, -1)
	}
	gocv.PutText(frame, fmt.Sprintf("%d%%", pct), image.Pt(r.Min.X-4, r.Max.Y+20),
		gocv.FontHersheyPlain, 1.1, colorText, 1)
}

func toPixel(p pose.Point) image.Point {
	return image.Pt(int(p.X+0.5), int(p.Y+0.5))
}
