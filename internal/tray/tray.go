// Package tray provides a system tray menu showing the live rep count.
package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/trainiq/internal/exercise"
)

// Tray represents the system tray application.
type Tray struct {
	onReset     func()
	onDashboard func()
	onQuit      func()
	state       exercise.State
	active      bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuCount *systray.MenuItem
	menuReset *systray.MenuItem
}

// New creates a new Tray instance showing an idle session.
func New() *Tray {
	return &Tray{}
}

// OnReset sets the callback called when Reset Counter is clicked.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback called when Open Dashboard is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback called when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("TrainIQ")
	systray.SetTooltip("TrainIQ rep counter")

	t.mu.Lock()
	t.menuCount = systray.AddMenuItem(countLabel(t.state, t.active), "Current session")
	t.menuCount.Disable()
	systray.AddSeparator()

	t.menuReset = systray.AddMenuItem("Reset Counter", "Set the count back to zero")
	if !t.active {
		t.menuReset.Disable()
	}
	menuReset := t.menuReset
	t.mu.Unlock()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit TrainIQ")

	go func() {
		for {
			select {
			case <-menuReset.ClickedCh:
				t.fire(func() func() { return t.onReset })
			case <-menuDashboard.ClickedCh:
				t.fire(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.fire(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// fire reads a callback under the lock and calls it outside.
func (t *Tray) fire(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetState updates the count shown in the menu. It matches app.UpdateFunc.
func (t *Tray) SetState(state exercise.State, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
	t.active = active

	if t.menuCount != nil {
		t.menuCount.SetTitle(countLabel(state, active))
		systray.SetTitle(titleLabel(state, active))
	}
	if t.menuReset != nil {
		if active {
			t.menuReset.Enable()
		} else {
			t.menuReset.Disable()
		}
	}
}

// State returns the last state passed to SetState.
func (t *Tray) State() (exercise.State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.active
}

func countLabel(state exercise.State, active bool) string {
	if !active {
		return "No active session"
	}
	return fmt.Sprintf("%s: %s reps (%s)", modeLabel(state.Mode), formatCount(state.Count), state.Direction)
}

func titleLabel(state exercise.State, active bool) string {
	if !active {
		return "TrainIQ"
	}
	return "TrainIQ " + formatCount(state.Count)
}

func modeLabel(m exercise.Mode) string {
	switch m {
	case exercise.ModePushUp:
		return "Push-ups"
	case exercise.ModeSquat:
		return "Squats"
	default:
		return string(m)
	}
}

// formatCount drops the fraction for whole reps.
func formatCount(c float64) string {
	if c == float64(int(c)) {
		return fmt.Sprintf("%d", int(c))
	}
	return fmt.Sprintf("%.1f", c)
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
