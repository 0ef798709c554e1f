package transport

import (
	"errors"
	"time"

	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/session"
)

// FrameMessage is sent for every processed frame, by polling and by the
// WebSocket push channel.
type FrameMessage struct {
	SessionID       string             `json:"session_id"`
	Mode            exercise.Mode      `json:"mode"`
	Count           float64            `json:"count"`
	Reps            int                `json:"reps"`
	Direction       exercise.Direction `json:"direction"`
	LeftPercentage  int                `json:"left_percentage"`
	RightPercentage int                `json:"right_percentage"`
	Angles          map[string]float64 `json:"angles"`
	PoseDetected    bool               `json:"pose_detected"`
	Frame           string             `json:"frame_base64,omitempty"`
	FrameFormat     string             `json:"frame_format,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// NewFrameMessage builds the client payload for res. The frame is omitted
// when res carries no image.
func NewFrameMessage(res *session.Result, enc Encoder) (*FrameMessage, error) {
	msg := &FrameMessage{
		SessionID:       res.SessionID,
		Mode:            res.State.Mode,
		Count:           res.State.Count,
		Reps:            res.State.Reps,
		Direction:       res.State.Direction,
		LeftPercentage:  res.Measurement.Left,
		RightPercentage: res.Measurement.Right,
		Angles:          res.Measurement.Angles,
		PoseDetected:    res.PoseDetected,
		Timestamp:       res.CapturedAt.UTC(),
	}
	if msg.Angles == nil {
		msg.Angles = map[string]float64{}
	}

	if res.Image != nil {
		frame, err := enc.Base64(res.Image)
		if err != nil {
			return nil, &session.FrameError{Stage: session.StageEncode, Err: err}
		}
		msg.Frame = frame
		msg.FrameFormat = enc.FormatName()
	}
	return msg, nil
}

// StatsMessage reports the counter without a frame.
type StatsMessage struct {
	SessionID string             `json:"session_id"`
	Count     float64            `json:"count"`
	Reps      int                `json:"reps"`
	Direction exercise.Direction `json:"direction"`
	Mode      exercise.Mode      `json:"mode"`
	Frames    int                `json:"frames"`
	StartedAt time.Time          `json:"started_at"`
	Status    string             `json:"status"`
}

// NewStatsMessage builds the stats payload for an active session.
func NewStatsMessage(stats session.Stats) StatsMessage {
	return StatsMessage{
		SessionID: stats.SessionID,
		Count:     stats.State.Count,
		Reps:      stats.State.Reps,
		Direction: stats.State.Direction,
		Mode:      stats.State.Mode,
		Frames:    stats.Frames,
		StartedAt: stats.StartedAt.UTC(),
		Status:    "active",
	}
}

// ErrorMessage is the body of every failed request and of WebSocket error
// frames. Stage is set for per-frame failures.
type ErrorMessage struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// NewErrorMessage describes err for a client.
func NewErrorMessage(err error) ErrorMessage {
	msg := ErrorMessage{Error: err.Error()}
	var fe *session.FrameError
	if errors.As(err, &fe) {
		msg.Stage = string(fe.Stage)
	}
	return msg
}
