package exercise

import (
	"math"
	"testing"
)

func TestCalibration_Percent(t *testing.T) {
	decreasing := Calibration{OpenAngle: 170, ClosedAngle: 90}
	increasing := Calibration{OpenAngle: 30, ClosedAngle: 150}

	tests := []struct {
		name  string
		cal   Calibration
		angle float64
		want  int
	}{
		{"open point", decreasing, 170, 0},
		{"closed point", decreasing, 90, 100},
		{"midpoint", decreasing, 130, 50},
		{"past open clamps", decreasing, 180, 0},
		{"past closed clamps", decreasing, 45, 100},
		{"quarter", decreasing, 150, 25},
		{"increasing open", increasing, 30, 0},
		{"increasing closed", increasing, 150, 100},
		{"increasing mid", increasing, 90, 50},
		{"increasing below", increasing, 0, 0},
		{"arccos drift at closed", decreasing, 90.00000000000001, 100},
		{"just short of closed truncates", decreasing, 90.3, 99},
		{"just past open threshold truncates", decreasing, 161.6, 10},
		{"fraction below one", decreasing, 169.5, 0},
		{"increasing truncates", increasing, 89.5, 49},
		{"nan", decreasing, math.NaN(), 0},
		{"zero span", Calibration{OpenAngle: 90, ClosedAngle: 90}, 90, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cal.Percent(tt.angle); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCalibration_PercentInRange(t *testing.T) {
	cals := []Calibration{
		{OpenAngle: 170, ClosedAngle: 90},
		{OpenAngle: 90, ClosedAngle: 170},
		{OpenAngle: 0, ClosedAngle: 180},
	}

	for _, cal := range cals {
		for angle := -90.0; angle <= 270; angle += 0.5 {
			got := cal.Percent(angle)
			if got < 0 || got > 100 {
				t.Fatalf("%+v: Percent(%f) = %d out of [0,100]", cal, angle, got)
			}
		}
	}
}
