package model

import (
	"image"
	"time"
)

// Box is an axis-aligned bounding box in frame pixels. X1 <= X2 and Y1 <= Y2.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewBox builds a Box from two corners in any order.
func NewBox(x1, y1, x2, y2 int) Box {
	return Box{X1: min(x1, x2), Y1: min(y1, y2), X2: max(x1, x2), Y2: max(y1, y2)}
}

func (b Box) Width() int  { return b.X2 - b.X1 }
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is one model output for one frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectionRecord is one row of a session log. Never modified once written.
type DetectionRecord struct {
	ID         int64     `json:"id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Label      string    `json:"label"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Confidence float64   `json:"confidence"`
	Time       time.Time `json:"time"`
	FrameIndex int       `json:"frame_index"`
}

// NewDetectionRecord records d at time t for the given frame.
func NewDetectionRecord(d Detection, t time.Time, frameIndex int) DetectionRecord {
	return DetectionRecord{
		Label:      d.Label,
		X:          d.Box.X1,
		Y:          d.Box.Y1,
		Confidence: d.Confidence,
		Time:       t,
		FrameIndex: frameIndex,
	}
}

// Frame is a captured picture and its ordinal within the capture stream.
type Frame struct {
	Index int
	Image *image.RGBA
}
