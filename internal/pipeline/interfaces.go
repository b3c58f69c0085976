package pipeline

import (
	"errors"
	"image"

	"cctvstation/internal/dto"
	"cctvstation/internal/model"
	"cctvstation/internal/service/storage"
)

// Detector runs the detection model on one frame. An empty result is not an error.
type Detector interface {
	Detect(img image.Image) ([]model.Detection, error)
}

// ErrSourceClosed is returned by FrameSource.Read once the source is gone for good.
// Any other read error is treated as a missed frame.
var ErrSourceClosed = errors.New("capture source closed")

// FrameSource yields frames from an opened capture source.
type FrameSource interface {
	Read() (*model.Frame, error)
	Close() error
}

// SourceOpener opens a capture source by device index or URI.
type SourceOpener func(source string) (FrameSource, error)

// SessionFactory creates the on-disk session for a new run.
type SessionFactory func() (*storage.Session, error)

// AlertSender writes a label to the hardware alert link.
type AlertSender interface {
	Send(label string) error
}

// DisplaySink receives annotated output frames. Offer must not block.
type DisplaySink interface {
	Offer(frame *model.Frame)
}

// EventSink receives one event per logged detection. Publish must not block.
type EventSink interface {
	PublishDetection(event dto.DetectionEvent)
}

// SessionIndex keeps a queryable copy of sessions and detections.
type SessionIndex interface {
	StartSession(s *model.Session) error
	FinishSession(s *model.Session) error
	InsertDetection(rec *model.DetectionRecord) error
}
