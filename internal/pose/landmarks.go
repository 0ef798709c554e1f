// Package pose provides body landmark detection interfaces and types for rep counting.
package pose

import "fmt"

// LandmarkID identifies a body landmark following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type LandmarkID int

// Body landmark indices.
const (
	Nose LandmarkID = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
	NumLandmarks
)

var landmarkNames = [NumLandmarks]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// String returns the snake_case landmark name, e.g. "left_shoulder".
func (id LandmarkID) String() string {
	if id < 0 || id >= NumLandmarks {
		return fmt.Sprintf("landmark(%d)", int(id))
	}
	return landmarkNames[id]
}

// ParseLandmarkID resolves a landmark name back to its id.
func ParseLandmarkID(name string) (LandmarkID, error) {
	for i, n := range landmarkNames {
		if n == name {
			return LandmarkID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown landmark %q", name)
}

// Point is a 2D position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmark is a detected body point with its visibility score (0.0-1.0).
type Landmark struct {
	Point
	Visibility float64 `json:"visibility"`
}

// Landmarks maps landmark ids to their positions for a single detected person.
// A nil or empty Landmarks means no person was detected.
type Landmarks map[LandmarkID]Landmark

// Get returns the point for id and whether it was detected.
func (l Landmarks) Get(id LandmarkID) (Point, bool) {
	lm, ok := l[id]
	return lm.Point, ok
}

// Detected reports whether any landmark is present.
func (l Landmarks) Detected() bool {
	return len(l) > 0
}

// Named returns the landmarks keyed by name, for JSON output.
func (l Landmarks) Named() map[string]Landmark {
	out := make(map[string]Landmark, len(l))
	for id, lm := range l {
		out[id.String()] = lm
	}
	return out
}
