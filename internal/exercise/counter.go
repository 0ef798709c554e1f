package exercise

import (
	"encoding/json"
	"sync"
)

// Direction is the phase of the current repetition.
type Direction int

const (
	// Down is the open position and the initial state.
	Down Direction = iota
	// Up is the closed position.
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "UP"
	}
	return "DOWN"
}

// MarshalJSON encodes the direction as its numeric value, matching the
// 0/1 direction field clients already read.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(d))
}

// State is a snapshot of a Counter.
type State struct {
	// Count is always a multiple of 0.5.
	Count     float64   `json:"count"`
	Reps      int       `json:"reps"`
	HalfReps  int       `json:"-"`
	Direction Direction `json:"direction"`
	Mode      Mode      `json:"mode"`
}

// Counter advances a repetition count from pairs of side percentages.
//
// Closed frames move Down to Up and open frames move Up to Down; each move is
// half a rep. Frames between the two thresholds never change state.
type Counter struct {
	mu        sync.Mutex
	profile   Profile
	halfReps  int
	direction Direction
}

// NewCounter creates a counter in the initial {0, Down} state.
func NewCounter(p Profile) *Counter {
	return &Counter{profile: p}
}

// Update feeds one frame's percentages and reports whether a half-rep fired.
func (c *Counter) Update(left, right int) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	halfReps, direction, moved := c.step(left, right)
	c.halfReps, c.direction = halfReps, direction
	return c.stateLocked(), moved
}

// Next returns the state Update would produce without changing the counter.
// Commit it with Apply once the frame has been fully handled.
func (c *Counter) Next(left, right int) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	halfReps, direction, moved := c.step(left, right)
	return c.makeState(halfReps, direction), moved
}

// Apply sets the counter to a state previously returned by Next.
func (c *Counter) Apply(st State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halfReps = st.HalfReps
	c.direction = st.Direction
}

func (c *Counter) step(left, right int) (int, Direction, bool) {
	switch {
	case c.profile.Closed(left, right):
		if c.direction == Down {
			return c.halfReps + 1, Up, true
		}
	case c.profile.Open(left, right):
		if c.direction == Up {
			return c.halfReps + 1, Down, true
		}
	}
	return c.halfReps, c.direction, false
}

// Reset returns the counter to {0, Down}.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halfReps = 0
	c.direction = Down
}

// State returns the current snapshot.
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Counter) stateLocked() State {
	return c.makeState(c.halfReps, c.direction)
}

func (c *Counter) makeState(halfReps int, direction Direction) State {
	return State{
		Count:     float64(halfReps) / 2,
		Reps:      halfReps / 2,
		HalfReps:  halfReps,
		Direction: direction,
		Mode:      c.profile.Mode,
	}
}
