package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel applied before differencing.
	blurKernel = 21
	// pixelDelta is the grey-level change that marks a pixel as moved.
	pixelDelta = 25
	// analysisWidth is the width frames are shrunk to before comparison.
	analysisWidth = 320
)

// Motion is the result of comparing a frame with its predecessor.
type Motion struct {
	// Moved is true when Changed exceeds the detector threshold.
	Moved bool
	// Changed is the percentage of pixels that differ, 0-100.
	Changed float64
	// Baseline is true for the first frame after construction or Reset.
	Baseline bool
}

// MotionDetector compares consecutive frames by blurred grayscale differencing.
// It is safe for concurrent use.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
}

// NewMotionDetector creates a detector that reports motion once more than
// threshold percent of pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame against the previous one and stores it as the new baseline.
// The first frame always reports Moved so callers process it.
func (m *MotionDetector) Detect(frame *gocv.Mat) Motion {
	return m.check(frame, true)
}

// Compare measures frame against the stored baseline without replacing it,
// so slow drift accumulates until it crosses the threshold. The first frame
// becomes the baseline and reports Moved.
func (m *MotionDetector) Compare(frame *gocv.Mat) Motion {
	return m.check(frame, false)
}

// Mark stores frame as the baseline for later comparisons.
func (m *MotionDetector) Mark(frame *gocv.Mat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return
	}
	prepared := prepare(frame)
	defer prepared.Close()
	prepared.CopyTo(&m.prev)
	m.hasPrev = true
}

func (m *MotionDetector) check(frame *gocv.Mat, store bool) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	blurred := prepare(frame)
	defer blurred.Close()

	if !m.hasPrev || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.hasPrev = true
		return Motion{Moved: true, Baseline: true}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	if store {
		blurred.CopyTo(&m.prev)
	}

	return Motion{Moved: changed > m.threshold, Changed: changed}
}

// prepare returns a shrunk, blurred grayscale copy of frame.
func prepare(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	small := gocv.NewMat()
	defer small.Close()
	if gray.Cols() > analysisWidth {
		h := gray.Rows() * analysisWidth / gray.Cols()
		gocv.Resize(gray, &small, image.Point{X: analysisWidth, Y: h}, 0, 0, gocv.InterpolationArea)
	} else {
		gray.CopyTo(&small)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(small, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)
	return blurred
}

// Threshold returns the change percentage above which motion is reported.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Reset forgets the previous frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasPrev = false
}

// Close releases the stored frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}
