package exercise

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ayusman/trainiq/internal/pose"
)

var (
	// ErrUnknownMode is returned when an exercise mode name is not recognized.
	ErrUnknownMode = errors.New("unknown exercise mode")
	// ErrInvalidProfile is returned by Profile.Validate.
	ErrInvalidProfile = errors.New("invalid exercise profile")
)

// Mode names an exercise.
type Mode string

const (
	ModePushUp Mode = "pushup"
	ModeSquat  Mode = "squat"
)

// ParseMode normalizes user input such as "push-up" or "Squats" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pushup", "push-up", "push_up", "pushups", "push-ups":
		return ModePushUp, nil
	case "squat", "squats":
		return ModeSquat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Joint is a named landmark triple whose angle is measured at Vertex.
type Joint struct {
	Name   string
	A      pose.LandmarkID
	Vertex pose.LandmarkID
	B      pose.LandmarkID
}

// Profile describes how an exercise is measured and when a half-rep fires.
// A side's angle is the mean of its joints' angles, mapped through Calibration.
// A frame is closed when both sides reach ClosedAt and open when both are at
// or below OpenAt.
type Profile struct {
	Mode        Mode
	Left        []Joint
	Right       []Joint
	Calibration Calibration
	ClosedAt    int
	OpenAt      int
}

// Measurement is the per-frame output of Profile.Measure.
type Measurement struct {
	Angles     map[string]float64
	LeftAngle  float64
	RightAngle float64
	Left       int
	Right      int
}

// Closed reports whether both sides are at the closed extreme.
func (p Profile) Closed(left, right int) bool {
	return left >= p.ClosedAt && right >= p.ClosedAt
}

// Open reports whether both sides are at the open extreme.
func (p Profile) Open(left, right int) bool {
	return left <= p.OpenAt && right <= p.OpenAt
}

// Measure computes joint angles and side percentages from landmarks.
// It returns false when a landmark needed by any joint is missing or an angle
// is not finite.
func (p Profile) Measure(lm pose.Landmarks) (Measurement, bool) {
	m := Measurement{Angles: make(map[string]float64, len(p.Left)+len(p.Right))}

	var ok bool
	if m.LeftAngle, ok = p.side(lm, p.Left, m.Angles); !ok {
		return Measurement{}, false
	}
	if m.RightAngle, ok = p.side(lm, p.Right, m.Angles); !ok {
		return Measurement{}, false
	}

	m.Left = p.Calibration.Percent(m.LeftAngle)
	m.Right = p.Calibration.Percent(m.RightAngle)
	return m, true
}

func (p Profile) side(lm pose.Landmarks, joints []Joint, angles map[string]float64) (float64, bool) {
	if len(joints) == 0 {
		return 0, false
	}

	var sum float64
	for _, j := range joints {
		a, ok1 := lm.Get(j.A)
		v, ok2 := lm.Get(j.Vertex)
		b, ok3 := lm.Get(j.B)
		if !ok1 || !ok2 || !ok3 {
			return 0, false
		}
		angle := Angle(a, v, b)
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			return 0, false
		}
		angles[j.Name] = angle
		sum += angle
	}
	return sum / float64(len(joints)), true
}

// Validate checks that the profile can drive a counter.
func (p Profile) Validate() error {
	if p.Mode == "" {
		return fmt.Errorf("%w: mode is required", ErrInvalidProfile)
	}
	if len(p.Left) == 0 || len(p.Right) == 0 {
		return fmt.Errorf("%w: both sides need at least one joint", ErrInvalidProfile)
	}
	if p.Calibration.OpenAngle == p.Calibration.ClosedAngle {
		return fmt.Errorf("%w: open and closed angles must differ", ErrInvalidProfile)
	}
	for _, a := range []float64{p.Calibration.OpenAngle, p.Calibration.ClosedAngle} {
		if a < 0 || a > 180 {
			return fmt.Errorf("%w: angle %.1f outside [0,180]", ErrInvalidProfile, a)
		}
	}
	if p.OpenAt < 0 || p.ClosedAt > 100 || p.OpenAt >= p.ClosedAt {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= open_at < closed_at <= 100", ErrInvalidProfile)
	}
	return nil
}

// PushUp measures both elbows (shoulder-elbow-wrist).
func PushUp() Profile {
	return Profile{
		Mode: ModePushUp,
		Left: []Joint{
			{Name: "left_elbow", A: pose.LeftShoulder, Vertex: pose.LeftElbow, B: pose.LeftWrist},
		},
		Right: []Joint{
			{Name: "right_elbow", A: pose.RightShoulder, Vertex: pose.RightElbow, B: pose.RightWrist},
		},
		Calibration: Calibration{OpenAngle: 170, ClosedAngle: 90},
		ClosedAt:    100,
		OpenAt:      10,
	}
}

// Squat averages knee (hip-knee-ankle) and hip (shoulder-hip-knee) per leg.
func Squat() Profile {
	return Profile{
		Mode: ModeSquat,
		Left: []Joint{
			{Name: "left_knee", A: pose.LeftHip, Vertex: pose.LeftKnee, B: pose.LeftAnkle},
			{Name: "left_hip", A: pose.LeftShoulder, Vertex: pose.LeftHip, B: pose.LeftKnee},
		},
		Right: []Joint{
			{Name: "right_knee", A: pose.RightHip, Vertex: pose.RightKnee, B: pose.RightAnkle},
			{Name: "right_hip", A: pose.RightShoulder, Vertex: pose.RightHip, B: pose.RightKnee},
		},
		Calibration: Calibration{OpenAngle: 170, ClosedAngle: 90},
		ClosedAt:    90,
		OpenAt:      10,
	}
}

var builtins = map[Mode]func() Profile{
	ModePushUp: PushUp,
	ModeSquat:  Squat,
}

// Lookup returns the built-in profile for mode.
func Lookup(mode Mode) (Profile, error) {
	fn, ok := builtins[mode]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return fn(), nil
}

// Modes lists the built-in exercise modes in name order.
func Modes() []Mode {
	modes := make([]Mode, 0, len(builtins))
	for m := range builtins {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
