package pipeline

import (
	"errors"
	"image"
	"sync"

	"cctvstation/internal/dto"
	"cctvstation/internal/model"
)

var errNoFrame = errors.New("no frame")

// fakeSource returns the scripted frames in order, then reports a missed read forever,
// or ErrSourceClosed when lost is set.
type fakeSource struct {
	mu     sync.Mutex
	frames int
	lost   bool
	reads  int
	closed int
	index  int
}

func (s *fakeSource) Read() (*model.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.frames == 0 {
		if s.lost {
			return nil, ErrSourceClosed
		}
		return nil, errNoFrame
	}
	s.frames--
	f := &model.Frame{Index: s.index, Image: image.NewRGBA(image.Rect(0, 0, 80, 60))}
	s.index++
	return f, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *fakeSource) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeDetector calls fn with the 1-based call number.
type fakeDetector struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) ([]model.Detection, error)
}

func (d *fakeDetector) Detect(img image.Image) ([]model.Detection, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.mu.Unlock()
	if d.fn == nil {
		return nil, nil
	}
	return d.fn(call)
}

func (d *fakeDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func always(labels ...string) func(int) ([]model.Detection, error) {
	return func(int) ([]model.Detection, error) {
		out := make([]model.Detection, 0, len(labels))
		for i, l := range labels {
			out = append(out, model.Detection{Label: l, Confidence: 0.88, Box: model.NewBox(10+i, 20, 30+i, 40)})
		}
		return out, nil
	}
}

type fakeSender struct {
	mu     sync.Mutex
	labels []string
	err    error
}

func (s *fakeSender) Send(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, label)
	return s.err
}

func (s *fakeSender) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.labels...)
}

type fakeDisplay struct {
	mu      sync.Mutex
	indices []int
}

func (d *fakeDisplay) Offer(frame *model.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indices = append(d.indices, frame.Index)
}

func (d *fakeDisplay) Indices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.indices...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []dto.DetectionEvent
}

func (e *fakeEvents) PublishDetection(event dto.DetectionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *fakeEvents) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

type fakeIndex struct {
	mu         sync.Mutex
	started    []model.Session
	finished   []model.Session
	detections []model.DetectionRecord
}

func (x *fakeIndex) StartSession(s *model.Session) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.started = append(x.started, *s)
	return nil
}

func (x *fakeIndex) FinishSession(s *model.Session) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.finished = append(x.finished, *s)
	return nil
}

func (x *fakeIndex) InsertDetection(rec *model.DetectionRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.detections = append(x.detections, *rec)
	return nil
}

// fakeEncoder fails its first failures writes.
type fakeEncoder struct {
	mu       sync.Mutex
	frames   int
	failures int
}

func (e *fakeEncoder) Write(img image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failures > 0 {
		e.failures--
		return errors.New("encoder stalled")
	}
	e.frames++
	return nil
}

func (e *fakeEncoder) Close() error { return nil }
