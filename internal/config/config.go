// Package config loads service configuration from YAML with TRAINIQ_*
// environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/trainiq/internal/exercise"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Camera   CameraConfig   `yaml:"camera"`
	Exercise ExerciseConfig `yaml:"exercise"`
	Pose     PoseConfig     `yaml:"pose"`
	Stream   StreamConfig   `yaml:"stream"`
	Motion   MotionConfig   `yaml:"motion"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Tray     TrayConfig     `yaml:"tray"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type CameraConfig struct {
	Index  int  `yaml:"index"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
}

type ExerciseConfig struct {
	Mode string `yaml:"mode"`
}

type PoseConfig struct {
	// Provider is "mediapipe" or "mock".
	Provider      string        `yaml:"provider"`
	Script        string        `yaml:"script"`
	Python        string        `yaml:"python"`
	Timeout       time.Duration `yaml:"timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	MinDetection  float64       `yaml:"min_detection_confidence"`
	MinTracking   float64       `yaml:"min_tracking_confidence"`
	MinVisibility float64       `yaml:"min_visibility"`
}

type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Format is "jpeg" or "webp".
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
	// Width downscales streamed frames; 0 keeps the capture width.
	Width int `yaml:"width"`
}

type MotionConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel converts Level to a slog.Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dbPath := "trainiq.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".trainiq", "trainiq.db")
	}

	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 5000},
		Camera:   CameraConfig{Index: 0, Width: 640, Height: 480, FPS: 30, Mirror: true},
		Exercise: ExerciseConfig{Mode: string(exercise.ModePushUp)},
		Pose: PoseConfig{
			Provider:      "mediapipe",
			Timeout:       2 * time.Second,
			IdleTimeout:   30 * time.Second,
			MinDetection:  0.5,
			MinTracking:   0.5,
			MinVisibility: 0.3,
		},
		Stream:  StreamConfig{Interval: 33 * time.Millisecond, Format: "jpeg", Quality: 80},
		Motion:  MotionConfig{Enabled: false, Threshold: 0.5},
		Storage: StorageConfig{Path: dbPath},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file on top of Default, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix TRAINIQ_ and underscore-separated paths:
//
//	TRAINIQ_SERVER_HOST, TRAINIQ_SERVER_PORT, TRAINIQ_SERVER_STATIC_DIR,
//	TRAINIQ_CAMERA_INDEX, TRAINIQ_CAMERA_MIRROR, TRAINIQ_EXERCISE_MODE,
//	TRAINIQ_POSE_PROVIDER, TRAINIQ_POSE_SCRIPT, TRAINIQ_POSE_PYTHON, TRAINIQ_POSE_TIMEOUT,
//	TRAINIQ_STREAM_INTERVAL, TRAINIQ_STREAM_FORMAT, TRAINIQ_STREAM_QUALITY, TRAINIQ_STREAM_WIDTH,
//	TRAINIQ_MOTION_ENABLED, TRAINIQ_MOTION_THRESHOLD,
//	TRAINIQ_STORAGE_PATH, TRAINIQ_LOG_LEVEL, TRAINIQ_TRAY_ENABLED
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flt := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("TRAINIQ_SERVER_HOST", &cfg.Server.Host)
	num("TRAINIQ_SERVER_PORT", &cfg.Server.Port)
	str("TRAINIQ_SERVER_STATIC_DIR", &cfg.Server.StaticDir)
	num("TRAINIQ_CAMERA_INDEX", &cfg.Camera.Index)
	boolean("TRAINIQ_CAMERA_MIRROR", &cfg.Camera.Mirror)
	str("TRAINIQ_EXERCISE_MODE", &cfg.Exercise.Mode)
	str("TRAINIQ_POSE_PROVIDER", &cfg.Pose.Provider)
	str("TRAINIQ_POSE_SCRIPT", &cfg.Pose.Script)
	str("TRAINIQ_POSE_PYTHON", &cfg.Pose.Python)
	dur("TRAINIQ_POSE_TIMEOUT", &cfg.Pose.Timeout)
	dur("TRAINIQ_STREAM_INTERVAL", &cfg.Stream.Interval)
	str("TRAINIQ_STREAM_FORMAT", &cfg.Stream.Format)
	num("TRAINIQ_STREAM_QUALITY", &cfg.Stream.Quality)
	num("TRAINIQ_STREAM_WIDTH", &cfg.Stream.Width)
	boolean("TRAINIQ_MOTION_ENABLED", &cfg.Motion.Enabled)
	flt("TRAINIQ_MOTION_THRESHOLD", &cfg.Motion.Threshold)
	str("TRAINIQ_STORAGE_PATH", &cfg.Storage.Path)
	str("TRAINIQ_LOG_LEVEL", &cfg.Log.Level)
	boolean("TRAINIQ_TRAY_ENABLED", &cfg.Tray.Enabled)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Camera.Index < 0 {
		return fmt.Errorf("camera.index must not be negative")
	}
	if _, err := exercise.ParseMode(c.Exercise.Mode); err != nil {
		return fmt.Errorf("exercise.mode: %w", err)
	}
	switch c.Pose.Provider {
	case "mediapipe", "mock":
	default:
		return fmt.Errorf("pose.provider %q must be mediapipe or mock", c.Pose.Provider)
	}
	if c.Pose.Timeout <= 0 {
		return fmt.Errorf("pose.timeout must be positive")
	}
	if c.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}
	switch strings.ToLower(c.Stream.Format) {
	case "jpeg", "jpg", "webp":
	default:
		return fmt.Errorf("stream.format %q must be jpeg or webp", c.Stream.Format)
	}
	if c.Stream.Quality < 1 || c.Stream.Quality > 100 {
		return fmt.Errorf("stream.quality must be between 1 and 100")
	}
	if c.Stream.Width < 0 {
		return fmt.Errorf("stream.width must not be negative")
	}
	if c.Motion.Threshold < 0 || c.Motion.Threshold > 100 {
		return fmt.Errorf("motion.threshold must be a percentage")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return nil
}
