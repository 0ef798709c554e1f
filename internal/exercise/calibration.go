package exercise

import "math"

// percentSlack absorbs arccos rounding noise so an angle computed as
// 90.00000000000001 still reaches 100% after truncation.
const percentSlack = 1e-6

// Calibration maps a joint angle onto a 0-100 closedness scale.
// OpenAngle maps to 0% and ClosedAngle to 100%; either may be the larger.
type Calibration struct {
	OpenAngle   float64 `json:"open_angle" yaml:"open_angle"`
	ClosedAngle float64 `json:"closed_angle" yaml:"closed_angle"`
}

// Percent linearly interpolates angle between the calibration points,
// clamps the result to [0, 100] and truncates it toward zero.
func (c Calibration) Percent(angle float64) int {
	span := c.ClosedAngle - c.OpenAngle
	if span == 0 || math.IsNaN(angle) {
		return 0
	}

	pct := (angle-c.OpenAngle)/span*100 + percentSlack
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
