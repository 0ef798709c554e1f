package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
		t.Errorf("expected ErrNoMoreFrames, got %v", err)
	}
	if cam.Reads() != 3 {
		t.Errorf("Reads() = %d, want 3", cam.Reads())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_Failures(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	t.Run("read before open", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame}, true)
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
			t.Errorf("expected ErrCameraNotOpen, got %v", err)
		}
	})

	t.Run("open error", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame}, true)
		want := errors.New("device busy")
		cam.SetOpenError(want)
		if err := cam.Open(); err != want {
			t.Errorf("expected %v, got %v", want, err)
		}
		if cam.IsOpen() {
			t.Error("camera should stay closed after failed open")
		}
	})

	t.Run("read error then recovery", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame}, true)
		cam.Open()
		defer cam.Close()

		want := errors.New("unplugged")
		cam.SetReadError(want)
		if _, err := cam.ReadFrame(); err != want {
			t.Errorf("expected %v, got %v", want, err)
		}

		cam.SetReadError(nil)
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		f.Close()
	})

	t.Run("no frames", func(t *testing.T) {
		cam := NewMockCamera(nil, true)
		cam.Open()
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrEmptyFrame) {
			t.Errorf("expected ErrEmptyFrame, got %v", err)
		}
	})

	t.Run("close counts only open cameras", func(t *testing.T) {
		cam := NewMockCamera(nil, true)
		cam.Close()
		cam.Open()
		cam.Close()
		cam.Close()
		if cam.Closed() != 1 {
			t.Errorf("Closed() = %d, want 1", cam.Closed())
		}
	})
}

func TestMockCamera_ImplementsCamera(t *testing.T) {
	var _ Camera = (*MockCamera)(nil)
}
