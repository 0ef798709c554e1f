package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
  static_dir: "./web"
camera:
  index: 1
  mirror: false
exercise:
  mode: squat
pose:
  provider: mock
  timeout: 500ms
stream:
  interval: 50ms
  format: webp
  quality: 70
  width: 320
motion:
  enabled: true
  threshold: 1.5
storage:
  path: "/tmp/trainiq-test.db"
log:
  level: debug
tray:
  enabled: true
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("server addr = %q, want 0.0.0.0:8080", cfg.Server.Addr())
	}
	if cfg.Server.StaticDir != "./web" {
		t.Errorf("server.static_dir = %q", cfg.Server.StaticDir)
	}
	if cfg.Camera.Index != 1 || cfg.Camera.Mirror {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Width != 640 {
		t.Errorf("camera.width should keep default 640, got %d", cfg.Camera.Width)
	}
	if cfg.Exercise.Mode != "squat" {
		t.Errorf("exercise.mode = %q", cfg.Exercise.Mode)
	}
	if cfg.Pose.Provider != "mock" || cfg.Pose.Timeout != 500*time.Millisecond {
		t.Errorf("pose = %+v", cfg.Pose)
	}
	if cfg.Stream.Interval != 50*time.Millisecond || cfg.Stream.Format != "webp" || cfg.Stream.Quality != 70 || cfg.Stream.Width != 320 {
		t.Errorf("stream = %+v", cfg.Stream)
	}
	if !cfg.Motion.Enabled || cfg.Motion.Threshold != 1.5 {
		t.Errorf("motion = %+v", cfg.Motion)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.Log.SlogLevel())
	}
	if !cfg.Tray.Enabled {
		t.Error("tray should be enabled")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := Default()
	if cfg.Server != def.Server {
		t.Errorf("server = %+v, want %+v", cfg.Server, def.Server)
	}
	if cfg.Stream.Interval != 33*time.Millisecond || cfg.Stream.Quality != 80 {
		t.Errorf("stream defaults = %+v", cfg.Stream)
	}
	if !cfg.Camera.Mirror {
		t.Error("mirror should default to true")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRAINIQ_SERVER_PORT", "9999")
	t.Setenv("TRAINIQ_POSE_PROVIDER", "mediapipe")
	t.Setenv("TRAINIQ_STREAM_INTERVAL", "100ms")
	t.Setenv("TRAINIQ_CAMERA_MIRROR", "true")
	t.Setenv("TRAINIQ_MOTION_THRESHOLD", "3")
	t.Setenv("TRAINIQ_EXERCISE_MODE", "push-up")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Pose.Provider != "mediapipe" {
		t.Errorf("pose.provider = %q", cfg.Pose.Provider)
	}
	if cfg.Stream.Interval != 100*time.Millisecond {
		t.Errorf("stream.interval = %v", cfg.Stream.Interval)
	}
	if !cfg.Camera.Mirror {
		t.Error("camera.mirror should be overridden to true")
	}
	if cfg.Motion.Threshold != 3 {
		t.Errorf("motion.threshold = %v", cfg.Motion.Threshold)
	}
	if cfg.Exercise.Mode != "push-up" {
		t.Errorf("exercise.mode = %q", cfg.Exercise.Mode)
	}
	// Unchanged fields keep YAML values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want 0.0.0.0", cfg.Server.Host)
	}
}

func TestEnvOverrideIgnoresMalformed(t *testing.T) {
	t.Setenv("TRAINIQ_SERVER_PORT", "not-a-port")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want YAML value 8080", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"bad port", [2]string{"port: 8080", "port: 70000"}, "server.port"},
		{"bad mode", [2]string{"mode: squat", "mode: burpee"}, "exercise.mode"},
		{"bad provider", [2]string{"provider: mock", "provider: openpose"}, "pose.provider"},
		{"zero timeout", [2]string{"timeout: 500ms", "timeout: 0s"}, "pose.timeout"},
		{"bad format", [2]string{"format: webp", "format: gif"}, "stream.format"},
		{"bad quality", [2]string{"quality: 70", "quality: 0"}, "stream.quality"},
		{"zero interval", [2]string{"interval: 50ms", "interval: 0s"}, "stream.interval"},
		{"bad threshold", [2]string{"threshold: 1.5", "threshold: 120"}, "motion.threshold"},
		{"bad level", [2]string{"level: debug", "level: chatty"}, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := strings.Replace(validYAML, tt.replace[0], tt.replace[1], 1)
			_, err := Load(writeTemp(t, yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeTemp(t, "server: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
