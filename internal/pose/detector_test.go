package pose

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestLandmarkID_String(t *testing.T) {
	tests := []struct {
		id   LandmarkID
		want string
	}{
		{Nose, "nose"},
		{LeftShoulder, "left_shoulder"},
		{RightElbow, "right_elbow"},
		{LeftKnee, "left_knee"},
		{RightFootIndex, "right_foot_index"},
		{NumLandmarks, "landmark(33)"},
		{LandmarkID(-1), "landmark(-1)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseLandmarkID(t *testing.T) {
	t.Run("round trips every landmark", func(t *testing.T) {
		for id := Nose; id < NumLandmarks; id++ {
			got, err := ParseLandmarkID(id.String())
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", id, err)
			}
			if got != id {
				t.Errorf("expected %d, got %d", id, got)
			}
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := ParseLandmarkID("left_antenna"); err == nil {
			t.Error("expected error for unknown landmark")
		}
	})
}

func TestLandmarks(t *testing.T) {
	t.Run("nil landmarks are not detected", func(t *testing.T) {
		var lm Landmarks
		if lm.Detected() {
			t.Error("expected nil landmarks to report not detected")
		}
		if _, ok := lm.Get(LeftElbow); ok {
			t.Error("expected Get on nil landmarks to fail")
		}
	})

	t.Run("Get and Named", func(t *testing.T) {
		lm := Landmarks{
			LeftElbow: {Point: Point{X: 10, Y: 20}, Visibility: 0.9},
		}

		p, ok := lm.Get(LeftElbow)
		if !ok {
			t.Fatal("expected left elbow to be present")
		}
		if p.X != 10 || p.Y != 20 {
			t.Errorf("unexpected point %+v", p)
		}

		named := lm.Named()
		if _, ok := named["left_elbow"]; !ok {
			t.Errorf("expected left_elbow key, got %v", named)
		}
	})
}

func TestToLandmarks(t *testing.T) {
	t.Run("empty response means no person", func(t *testing.T) {
		if lm := toLandmarks(nil, 640, 480, 0.3); lm != nil {
			t.Errorf("expected nil, got %v", lm)
		}
	})

	t.Run("scales to pixels and drops low visibility", func(t *testing.T) {
		points := make([]jsonLandmark, NumLandmarks)
		for i := range points {
			points[i] = jsonLandmark{X: 0.5, Y: 0.25, Visibility: 0.9}
		}
		points[LeftWrist].Visibility = 0.1

		lm := toLandmarks(points, 640, 480, 0.3)

		if len(lm) != int(NumLandmarks)-1 {
			t.Errorf("expected %d landmarks, got %d", NumLandmarks-1, len(lm))
		}
		if _, ok := lm[LeftWrist]; ok {
			t.Error("expected low-visibility wrist to be dropped")
		}

		p, _ := lm.Get(Nose)
		if math.Abs(p.X-320) > epsilon || math.Abs(p.Y-120) > epsilon {
			t.Errorf("expected (320,120), got (%f,%f)", p.X, p.Y)
		}
	})

	t.Run("all points invisible means no person", func(t *testing.T) {
		points := []jsonLandmark{{X: 0.1, Y: 0.1, Visibility: 0.05}}
		if lm := toLandmarks(points, 640, 480, 0.3); lm != nil {
			t.Errorf("expected nil, got %v", lm)
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = filepath.Join(t.TempDir(), "missing.py")

	if _, err := NewMediaPipeDetector(cfg); err == nil {
		t.Error("expected error for missing script")
	}
}

func TestMockDetector(t *testing.T) {
	ctx := context.Background()

	t.Run("returns no landmarks by default", func(t *testing.T) {
		mock := NewMockDetector()

		lm, err := mock.Detect(ctx, nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if lm != nil {
			t.Errorf("expected nil landmarks, got %v", lm)
		}
	})

	t.Run("returns configured landmarks", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetLandmarks(PushUpPose(170))

		lm, err := mock.Detect(ctx, nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !lm.Detected() {
			t.Error("expected landmarks")
		}
	})

	t.Run("plays sequence then repeats last", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetSequence([]Landmarks{PushUpPose(90), nil, PushUpPose(170)})

		want := []bool{true, false, true, true}
		for i, detected := range want {
			lm, err := mock.Detect(ctx, nil)
			if err != nil {
				t.Fatalf("call %d: unexpected error: %v", i, err)
			}
			if lm.Detected() != detected {
				t.Errorf("call %d: expected detected=%v", i, detected)
			}
		}
		if mock.Calls() != len(want) {
			t.Errorf("expected %d calls, got %d", len(want), mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("inference failed")
		mock.SetError(expectedErr)

		lm, err := mock.Detect(ctx, nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if lm != nil {
			t.Errorf("expected nil landmarks when error is set, got %v", lm)
		}
	})

	t.Run("delay honours context", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetDelay(time.Second)

		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := mock.Detect(ctx, nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestSquatPose_Landmarks(t *testing.T) {
	lm := SquatPose(180, 180)

	for _, id := range []LandmarkID{
		LeftShoulder, LeftHip, LeftKnee, LeftAnkle,
		RightShoulder, RightHip, RightKnee, RightAnkle,
	} {
		if _, ok := lm.Get(id); !ok {
			t.Errorf("expected %s in squat pose", id)
		}
	}

	// Standing straight: shoulder above hip above knee above ankle.
	shoulder, _ := lm.Get(LeftShoulder)
	hip, _ := lm.Get(LeftHip)
	knee, _ := lm.Get(LeftKnee)
	ankle, _ := lm.Get(LeftAnkle)
	if !(shoulder.Y < hip.Y && hip.Y < knee.Y && knee.Y < ankle.Y) {
		t.Errorf("expected vertical stack, got shoulder=%v hip=%v knee=%v ankle=%v", shoulder, hip, knee, ankle)
	}
}
