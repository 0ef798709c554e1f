package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/trainiq/internal/app"
	"github.com/ayusman/trainiq/internal/capture"
	"github.com/ayusman/trainiq/internal/pose"
	"github.com/ayusman/trainiq/internal/store"
	"github.com/ayusman/trainiq/testdata"
)

func newStreamingServer(t *testing.T) (*httptest.Server, *pose.MockDetector) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cam, cleanup := testdata.MockCamera(3)
	t.Cleanup(cleanup)
	det := pose.NewMockDetector()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := app.New(app.Config{
		Store:          st,
		Logger:         logger,
		NewCamera:      func(int) capture.Camera { return cam },
		NewDetector:    func() (pose.Detector, error) { return det, nil },
		StreamInterval: 5 * time.Millisecond,
	})
	a.Start()

	ts := httptest.NewServer(New(Config{App: a, Logger: logger}))
	t.Cleanup(func() {
		ts.Close()
		a.Stop()
	})
	return ts, det
}

func TestAPI_WebSocketCloseKeepsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ts, det := newStreamingServer(t)
	det.SetLandmarks(pose.PushUpPose(170))

	resp, err := http.Post(ts.URL+"/api/initialize", "", nil)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	conn.Close()

	// The session outlives the socket and still serves polling clients.
	for _, path := range []string{"/api/stats", "/api/process_frame"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s after socket close = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAPI_WebSocketPushesFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ts, det := newStreamingServer(t)
	det.SetSequence(testdata.PushUpReps(1))

	resp, err := http.Post(ts.URL+"/api/initialize", "", nil)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if _, ok := msg["error"]; ok {
			t.Fatalf("unexpected error message %v", msg)
		}
		if msg["count"] == 1.0 {
			if frame, _ := msg["frame_base64"].(string); frame == "" {
				t.Error("expected frame in pushed message")
			}
			break
		}
	}

	if err := conn.WriteJSON(map[string]string{"type": "reset"}); err != nil {
		t.Fatalf("write reset: %v", err)
	}
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read after reset: %v", err)
		}
		if msg["type"] == "reset" {
			if msg["count"] != 0.0 {
				t.Errorf("reset reply count = %v, want 0", msg["count"])
			}
			return
		}
	}
}

func TestAPI_WebSocketRejectsUnknownMessages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ts, _ := newStreamingServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	conn.WriteJSON(map[string]string{"type": "dance"})

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e, _ := msg["error"].(string); !strings.Contains(e, "dance") {
		t.Errorf("expected unknown type error, got %v", msg)
	}

	conn.WriteJSON(map[string]string{"type": "reset"})
	msg = nil
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg["error"] != "system not initialized" {
		t.Errorf("expected not initialized error, got %v", msg)
	}
}

func TestAPI_MJPEGStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ts, det := newStreamingServer(t)
	det.SetLandmarks(pose.PushUpPose(130))

	resp, err := http.Post(ts.URL+"/api/initialize", "", nil)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Fatalf("unexpected content type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	boundary, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read boundary: %v", err)
	}
	if boundary != "--frame\r\n" {
		t.Fatalf("unexpected boundary %q", boundary)
	}

	header, err := textproto.NewReader(r).ReadMIMEHeader()
	if err != nil {
		t.Fatalf("read part header: %v", err)
	}
	if header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("part content type = %q", header.Get("Content-Type"))
	}

	soi := make([]byte, 2)
	if _, err := io.ReadFull(r, soi); err != nil {
		t.Fatalf("read part body: %v", err)
	}
	if !bytes.Equal(soi, []byte{0xFF, 0xD8}) {
		t.Errorf("part does not start with a JPEG marker: %x", soi)
	}
}

func TestAPI_ProfileAndWorkoutWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ts, det := newStreamingServer(t)
	client := ts.Client()

	// 1. Loosen push-up calibration so 100 degrees counts as the bottom.
	body := `{"open_angle": 160, "closed_angle": 100, "closed_at": 90, "open_at": 10}`
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/profiles/pushup", strings.NewReader(body))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT profile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 2. Count a half rep with the override.
	det.SetLandmarks(pose.PushUpPose(100))
	resp, _ = client.Post(ts.URL+"/api/initialize?mode=pushup", "", nil)
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/process_frame")
	var frame map[string]any
	json.NewDecoder(resp.Body).Decode(&frame)
	resp.Body.Close()
	if frame["count"] != 0.5 {
		t.Fatalf("count = %v, want 0.5", frame["count"])
	}

	// 3. Stop and find the workout in history.
	resp, _ = client.Post(ts.URL+"/api/stop", "", nil)
	var stopped struct {
		Workout struct {
			ID string `json:"id"`
		} `json:"workout"`
	}
	json.NewDecoder(resp.Body).Decode(&stopped)
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/workouts?mode=pushup")
	var listed struct {
		Workouts []struct {
			ID    string  `json:"id"`
			Count float64 `json:"count"`
		} `json:"workouts"`
		TotalCount float64 `json:"total_count"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Workouts) != 1 || listed.Workouts[0].ID != stopped.Workout.ID {
		t.Fatalf("unexpected workouts %+v", listed)
	}
	if listed.TotalCount != 0.5 {
		t.Errorf("total_count = %v, want 0.5", listed.TotalCount)
	}

	// 4. Delete the override and the workout.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/profiles/pushup", nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE profile status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/workouts/"+stopped.Workout.ID, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE workout status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp, _ = client.Get(ts.URL + "/api/workouts/" + stopped.Workout.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted workout status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
