package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ayusman/trainiq/internal/app"
	"github.com/ayusman/trainiq/internal/capture"
	"github.com/ayusman/trainiq/internal/config"
	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/metrics"
	"github.com/ayusman/trainiq/internal/pose"
	"github.com/ayusman/trainiq/internal/server"
	"github.com/ayusman/trainiq/internal/session"
	"github.com/ayusman/trainiq/internal/store"
	"github.com/ayusman/trainiq/internal/transport"
	"github.com/ayusman/trainiq/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address host:port (overrides config)")
	camera := flag.Int("camera", -1, "default camera index (overrides config)")
	mode := flag.String("mode", "", "default exercise: pushup or squat (overrides config)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, *addr, *camera, *mode, *logLevel, *withTray); err != nil {
		fmt.Fprintf(os.Stderr, "flags: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, addr string, camera int, mode, logLevel string, withTray bool) error {
	if addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("-addr: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("-addr port: %w", err)
		}
		cfg.Server.Host = host
		cfg.Server.Port = p
	}
	if camera >= 0 {
		cfg.Camera.Index = camera
	}
	if mode != "" {
		cfg.Exercise.Mode = mode
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if withTray {
		cfg.Tray.Enabled = true
	}
	return cfg.Validate()
}

func run(cfg *config.Config, log *slog.Logger) error {
	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", "path", st.Path())

	m := metrics.New()

	provider, newDetector := detectorFactory(cfg, log)

	format, err := transport.ParseFormat(cfg.Stream.Format)
	if err != nil {
		return err
	}
	encoder := transport.Encoder{Format: format, Quality: cfg.Stream.Quality, Width: cfg.Stream.Width}

	var motionThreshold float64
	if cfg.Motion.Enabled {
		motionThreshold = cfg.Motion.Threshold
	}

	settings := capture.Settings{Width: cfg.Camera.Width, Height: cfg.Camera.Height, FPS: cfg.Camera.FPS}
	a := app.New(app.Config{
		Store:   st,
		Metrics: m,
		Logger:  log,
		NewCamera: func(index int) capture.Camera {
			return capture.NewCamera(index, settings)
		},
		NewDetector: newDetector,
		Provider:    provider,
		Session: session.Options{
			Mirror:          cfg.Camera.Mirror,
			DetectTimeout:   cfg.Pose.Timeout,
			MotionThreshold: motionThreshold,
		},
		StreamInterval: cfg.Stream.Interval,
	})

	defaultMode, err := exercise.ParseMode(cfg.Exercise.Mode)
	if err != nil {
		return err
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		App:           a,
		Encoder:       encoder,
		StaticDir:     staticDir,
		Logger:        log,
		DefaultCamera: cfg.Camera.Index,
		DefaultMode:   defaultMode,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpSrv.Addr, "provider", provider)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	if cfg.Tray.Enabled {
		runTray(ctx, stop, a, "http://"+httpSrv.Addr, log)
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	a.Stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown", "err", err)
		httpSrv.Close()
	}
	return nil
}

// detectorFactory picks the pose provider. A missing MediaPipe service
// script falls back to the mock provider so the API stays usable.
func detectorFactory(cfg *config.Config, log *slog.Logger) (string, func() (pose.Detector, error)) {
	pcfg := pose.Config{
		MinConfidence:   cfg.Pose.MinDetection,
		MinTrackingConf: cfg.Pose.MinTracking,
		MinVisibility:   cfg.Pose.MinVisibility,
		ScriptPath:      cfg.Pose.Script,
		PythonPath:      cfg.Pose.Python,
		IdleTimeout:     cfg.Pose.IdleTimeout,
	}

	if cfg.Pose.Provider == "mediapipe" {
		_, err := pose.NewMediaPipeDetector(pcfg)
		if err == nil {
			return "mediapipe", func() (pose.Detector, error) {
				return pose.NewMediaPipeDetector(pcfg)
			}
		}
		log.Warn("mediapipe unavailable, using mock pose provider", "err", err)
	}

	return "mock", func() (pose.Detector, error) {
		return pose.NewMockDetector(), nil
	}
}

// runTray blocks on the tray loop, which must own the main goroutine.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, dashboard string, log *slog.Logger) {
	t := tray.New()
	t.OnReset(func() {
		if _, err := a.Reset(); err != nil {
			log.Warn("tray reset", "err", err)
		}
	})
	t.OnDashboard(func() {
		if err := tray.OpenBrowser(dashboard); err != nil {
			log.Warn("open dashboard", "err", err)
		}
	})
	t.OnQuit(stop)
	a.OnUpdate(t.SetState)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

// findWebDir searches for the dashboard directory in common locations:
// "web", "../web", "../../web" and ~/.trainiq/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".trainiq", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
