package pose

import (
	"context"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks Landmarks
	sequence  []Landmarks
	err       error
	delay     time.Duration
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by Detect.
func (m *MockDetector) SetLandmarks(lm Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = lm
	m.sequence = nil
}

// SetSequence queues results returned one per Detect call. Once the queue is
// drained the last entry keeps being returned.
func (m *MockDetector) SetSequence(seq []Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = append([]Landmarks(nil), seq...)
	if len(seq) > 0 {
		m.landmarks = seq[len(seq)-1]
	}
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes Detect block for d or until ctx is done.
func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(ctx context.Context, frame *gocv.Mat) (Landmarks, error) {
	m.mu.Lock()
	m.calls++
	delay := m.delay
	err := m.err
	lm := m.landmarks
	if len(m.sequence) > 0 {
		lm = m.sequence[0]
		m.sequence = m.sequence[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return lm, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

const (
	limbLength    = 100.0
	presetVisible = 0.95
)

// bend places b so that the angle a-vertex-b equals deg, with a straight above vertex.
// sign mirrors the limb for the other side of the body.
func bend(vertex Point, deg, sign float64) (a, b Point) {
	rad := deg * math.Pi / 180
	a = Point{X: vertex.X, Y: vertex.Y - limbLength}
	b = Point{
		X: vertex.X + sign*limbLength*math.Sin(rad),
		Y: vertex.Y - limbLength*math.Cos(rad),
	}
	return a, b
}

func visible(p Point) Landmark {
	return Landmark{Point: p, Visibility: presetVisible}
}

// PushUpPose returns landmarks with both elbows bent to elbowAngle degrees.
// 170 is arms extended, 90 is the bottom of the rep.
func PushUpPose(elbowAngle float64) Landmarks {
	lm := Landmarks{}

	leftElbow := Point{X: 200, Y: 300}
	leftShoulder, leftWrist := bend(leftElbow, elbowAngle, 1)
	lm[LeftShoulder] = visible(leftShoulder)
	lm[LeftElbow] = visible(leftElbow)
	lm[LeftWrist] = visible(leftWrist)

	rightElbow := Point{X: 440, Y: 300}
	rightShoulder, rightWrist := bend(rightElbow, elbowAngle, -1)
	lm[RightShoulder] = visible(rightShoulder)
	lm[RightElbow] = visible(rightElbow)
	lm[RightWrist] = visible(rightWrist)

	lm[Nose] = visible(Point{X: 320, Y: leftShoulder.Y - 40})
	lm[LeftHip] = visible(Point{X: 260, Y: 380})
	lm[RightHip] = visible(Point{X: 380, Y: 380})

	return lm
}

// SquatPose returns landmarks with both knees at kneeAngle and both hips at
// hipAngle degrees. Standing upright is 180/180.
func SquatPose(kneeAngle, hipAngle float64) Landmarks {
	lm := Landmarks{}

	for _, side := range []struct {
		knee            Point
		sign            float64
		shoulder, hip   LandmarkID
		kneeID, ankleID LandmarkID
	}{
		{Point{X: 260, Y: 360}, 1, LeftShoulder, LeftHip, LeftKnee, LeftAnkle},
		{Point{X: 380, Y: 360}, -1, RightShoulder, RightHip, RightKnee, RightAnkle},
	} {
		hip, ankle := bend(side.knee, kneeAngle, side.sign)

		// Hip vertex: the knee sits straight below, the torso rotates from straight up.
		rad := hipAngle * math.Pi / 180
		shoulder := Point{
			X: hip.X + side.sign*limbLength*math.Sin(rad),
			Y: hip.Y + limbLength*math.Cos(rad),
		}

		lm[side.shoulder] = visible(shoulder)
		lm[side.hip] = visible(hip)
		lm[side.kneeID] = visible(side.knee)
		lm[side.ankleID] = visible(ankle)
	}

	return lm
}
