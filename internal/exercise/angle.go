// Package exercise turns body landmarks into joint angles, closedness
// percentages and a repetition count.
package exercise

import (
	"math"

	"github.com/ayusman/trainiq/internal/pose"
)

// NeutralAngle is returned when an angle cannot be measured because one of
// its arms has zero length, e.g. two landmarks collapsed onto the same pixel.
const NeutralAngle = 90.0

// Angle returns the angle a-vertex-b in degrees, in the range [0, 180].
func Angle(a, vertex, b pose.Point) float64 {
	ax, ay := a.X-vertex.X, a.Y-vertex.Y
	bx, by := b.X-vertex.X, b.Y-vertex.Y

	na := math.Hypot(ax, ay)
	nb := math.Hypot(bx, by)
	if na == 0 || nb == 0 {
		return NeutralAngle
	}

	cos := (ax*bx + ay*by) / (na * nb)
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * 180 / math.Pi
}
