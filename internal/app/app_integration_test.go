package app

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/session"
	"github.com/ayusman/trainiq/testdata"
)

func TestApp_FrameLoop_StreamsToSubscribers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	f := newFixture(t)
	f.app.config.StreamInterval = 5 * time.Millisecond
	f.detector.SetSequence(testdata.PushUpReps(1))

	if _, err := f.app.Initialize(0, exercise.ModePushUp); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	id, ch := f.app.Subscribe()
	defer f.app.Unsubscribe(id)

	f.app.Start()
	f.app.Start()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case u := <-ch:
			if u.Err != nil {
				t.Fatalf("unexpected stream error: %v", u.Err)
			}
			if u.Result.Image == nil {
				t.Fatal("streamed result has no image")
			}
			if u.Result.State.Count == 1.0 {
				f.app.Stop()
				if f.camera.IsOpen() {
					t.Error("Stop should release the camera")
				}
				return
			}
		case <-timeout:
			f.app.Stop()
			t.Fatal("timed out waiting for a full rep on the stream")
		}
	}
}

func TestApp_FrameLoop_IdleWithoutSubscribers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	f := newFixture(t)
	f.app.config.StreamInterval = 5 * time.Millisecond
	f.app.Initialize(0, exercise.ModePushUp)

	f.app.Start()
	time.Sleep(50 * time.Millisecond)
	f.app.Stop()

	if f.camera.Reads() != 0 {
		t.Errorf("camera read %d times with nobody listening", f.camera.Reads())
	}
}

func TestApp_FrameLoop_PublishesErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	f := newFixture(t)
	f.app.config.StreamInterval = 5 * time.Millisecond
	f.app.Initialize(0, exercise.ModePushUp)
	f.camera.SetReadError(errors.New("unplugged"))

	id, ch := f.app.Subscribe()
	defer f.app.Unsubscribe(id)

	f.app.Start()
	defer f.app.Stop()

	select {
	case u := <-ch:
		if !errors.Is(u.Err, session.ErrCameraUnavailable) {
			t.Errorf("expected ErrCameraUnavailable, got %v", u.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the error update")
	}
}
