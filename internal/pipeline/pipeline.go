package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cctvstation/internal/config"
	"cctvstation/internal/dto"
	"cctvstation/internal/logger"
	"cctvstation/internal/metrics"
	"cctvstation/internal/model"
	"cctvstation/internal/service/alert"
	"cctvstation/internal/service/annotate"
	"cctvstation/internal/service/storage"
)

// ErrAlreadyRunning is returned by Start while a run is active.
var ErrAlreadyRunning = errors.New("pipeline already running")

const (
	defaultTickInterval = 10 * time.Millisecond
	defaultSlowTick     = time.Second
	defaultWidth        = 1080
	defaultHeight       = 720
	// missLogEvery limits how often consecutive missed reads are logged.
	missLogEvery = 100
)

// State is the pipeline lifecycle phase.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Deps are the collaborators a Pipeline drives. Detector, Open and NewSession are required.
type Deps struct {
	Detector   Detector
	Open       SourceOpener
	NewSession SessionFactory
	Alert      AlertSender
	Display    DisplaySink
	Events     EventSink
	Index      SessionIndex
	Metrics    *metrics.Metrics
}

// Pipeline runs the capture, detect, persist and alert loop for one source at a time.
type Pipeline struct {
	deps      Deps
	logger    *logger.Logger
	interval  time.Duration
	slowTick  time.Duration
	threshold int
	width     int
	height    int
	enabled   atomic.Bool

	lifecycle sync.Mutex // serializes Start and Stop
	mu        sync.RWMutex
	current   *run
}

// run is the state owned by one Start..Stop cycle. Only the loop goroutine touches
// capture, session and misses.
type run struct {
	source  string
	capture FrameSource
	session *storage.Session
	gate    *alert.Gate
	record  *model.Session
	misses  int
	stop    chan struct{}
	done    chan struct{}
}

// New creates a stopped Pipeline.
func New(cfg *config.Config, deps Deps, logger *logger.Logger) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	width, height := cfg.OutputWidth, cfg.OutputHeight
	if width <= 0 || height <= 0 {
		width, height = defaultWidth, defaultHeight
	}
	p := &Pipeline{
		deps:      deps,
		logger:    logger,
		interval:  interval,
		slowTick:  defaultSlowTick,
		threshold: cfg.AlertThreshold,
		width:     width,
		height:    height,
	}
	p.enabled.Store(cfg.AlertEnabled)
	return p
}

// Start opens source, creates a new session and alert gate, and starts the loop.
// On any error the pipeline stays stopped.
func (p *Pipeline) Start(source string) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.State() == Running {
		return ErrAlreadyRunning
	}

	capture, err := p.deps.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open capture source %q: %w", source, err)
	}

	session, err := p.deps.NewSession()
	if err != nil {
		capture.Close()
		return fmt.Errorf("failed to create session: %w", err)
	}

	r := &run{
		source:  source,
		capture: capture,
		session: session,
		record: &model.Session{
			ID:        session.ID,
			Source:    source,
			RootDir:   session.RootDir,
			StartedAt: session.CreatedAt,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if p.deps.Index != nil {
		if err := p.deps.Index.StartSession(r.record); err != nil {
			p.logger.Warning("Failed to index session %s: %v", session.ID, err)
			p.deps.Metrics.IndexErrors.Add(1)
		}
	}

	// SetAlertEnabled either lands before the gate is built or finds it in current.
	p.mu.Lock()
	r.gate = alert.NewGate(p.threshold, p.enabled.Load())
	p.current = r
	p.mu.Unlock()

	p.deps.Metrics.Sessions.Add(1)
	p.deps.Metrics.SetRunning(true)
	p.logger.Info("Pipeline started on %s, session %s in %s", source, session.ID, session.RootDir)

	go p.loop(r)
	return nil
}

// Stop ends the current run. The in-flight tick completes first, then the capture is
// released and the session closed. Safe to call when stopped.
func (p *Pipeline) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.RLock()
	r := p.current
	p.mu.RUnlock()
	if r == nil {
		return
	}

	close(r.stop)
	<-r.done
	p.finish(r)
}

// abandon ends a run whose source went away, unless Stop already ended it.
func (p *Pipeline) abandon(r *run) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()
	if current != r {
		return
	}
	p.finish(r)
}

// finish tears r down and marks the pipeline stopped. Callers hold lifecycle.
func (p *Pipeline) finish(r *run) {
	p.teardown(r)

	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.deps.Metrics.SetRunning(false)
}

func (p *Pipeline) teardown(r *run) {
	if err := r.capture.Close(); err != nil {
		p.logger.Warning("Failed to release capture %s: %v", r.source, err)
	}

	frames := r.session.FrameCount()
	if err := r.session.Close(); err != nil {
		p.logger.Error("Failed to close session %s: %v", r.session.ID, err)
	}

	if p.deps.Index != nil {
		stoppedAt := r.session.Now()
		r.record.StoppedAt = &stoppedAt
		r.record.Frames = frames
		r.record.Alerted = r.gate.State() == alert.Fired
		if err := p.deps.Index.FinishSession(r.record); err != nil {
			p.logger.Warning("Failed to finish session %s in index: %v", r.session.ID, err)
			p.deps.Metrics.IndexErrors.Add(1)
		}
	}

	p.logger.Info("Pipeline stopped, session %s kept %d frames", r.session.ID, frames)
}

// State reports whether a run is active.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Stopped
	}
	return Running
}

// Session returns the active session's snapshot, or nil when stopped.
func (p *Pipeline) Session() *dto.SessionInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	info := p.current.session.Info()
	return &info
}

// SetAlertEnabled toggles the alert system for the current and future runs.
func (p *Pipeline) SetAlertEnabled(enabled bool) {
	p.enabled.Store(enabled)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current != nil {
		p.current.gate.SetEnabled(enabled)
	}
}

// AlertEnabled reports the alert system toggle.
func (p *Pipeline) AlertEnabled() bool {
	return p.enabled.Load()
}

// Status summarizes the pipeline and its alert gate.
func (p *Pipeline) Status() dto.PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := dto.PipelineStatus{
		State:        Stopped.String(),
		AlertState:   alert.Idle.String(),
		AlertEnabled: p.enabled.Load(),
	}
	if r := p.current; r != nil {
		info := r.session.Info()
		status.State = Running.String()
		status.Source = r.source
		status.Session = &info
		status.AlertState = r.gate.State().String()
		status.Tally = r.gate.Tally()
	}
	return status
}

// loop runs ticks until stop is closed or the source is lost. In the latter case the run
// ends on its own and the pipeline goes back to Stopped.
func (p *Pipeline) loop(r *run) {
	lost := p.ticks(r)
	close(r.done)
	if lost {
		p.abandon(r)
	}
}

// ticks drives the timer. It is re-armed only after a tick returns, so ticks never overlap.
func (p *Pipeline) ticks(r *run) (lost bool) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-r.stop:
			return false
		case <-timer.C:
		}

		select {
		case <-r.stop:
			return false
		default:
		}

		if p.tick(r) {
			return true
		}
		timer.Reset(p.interval)
	}
}

// tick processes one frame. It reports true when the source is gone for good.
func (p *Pipeline) tick(r *run) (lost bool) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("Recovered from panic while processing frame: %v", rec)
			p.deps.Metrics.FrameErrors.Add(1)
		}
		elapsed := time.Since(start)
		p.deps.Metrics.UpdateTickLatency(elapsed)
		if elapsed > p.slowTick {
			p.deps.Metrics.SlowTicks.Add(1)
			p.logger.Warning("Slow tick: %v", elapsed)
		}
	}()

	frame, err := r.capture.Read()
	if errors.Is(err, ErrSourceClosed) {
		p.logger.Error("Capture source %s lost, ending session %s: %v", r.source, r.session.ID, err)
		return true
	}
	if err != nil || frame == nil || frame.Image == nil {
		r.misses++
		p.deps.Metrics.MissedReads.Add(1)
		if r.misses == 1 || r.misses%missLogEvery == 0 {
			p.logger.Warning("No frame from %s (%d consecutive): %v", r.source, r.misses, err)
		}
		return false
	}
	r.misses = 0
	p.deps.Metrics.FramesRead.Add(1)

	if err := p.process(r, frame); err != nil {
		p.deps.Metrics.FrameErrors.Add(1)
		p.logger.Error("Skipping frame: %v", err)
	}
	return false
}

// process annotates, persists and logs one frame. Detections are handled in model order,
// so when several cross the threshold in the same frame only the first fires the alert.
// Rows are logged once the frame is stored, so their frame index always names a stored frame.
func (p *Pipeline) process(r *run, frame *model.Frame) error {
	detections, err := p.deps.Detector.Detect(frame.Image)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	now := r.session.Now()

	for _, d := range detections {
		annotate.Detection(frame.Image, d)

		if r.gate.Observe(d.Label) {
			p.sendAlert(d.Label)
		}
	}

	out := annotate.Resize(frame.Image, p.width, p.height)
	index, err := r.session.StoreFrame(out)
	if err != nil {
		return fmt.Errorf("failed to store frame %d: %w", index, err)
	}
	p.deps.Metrics.FramesPersisted.Add(1)

	for _, d := range detections {
		p.logDetection(r, d, now, index)
	}

	if p.deps.Display != nil {
		p.deps.Display.Offer(&model.Frame{Index: index, Image: out})
	}
	return nil
}

// logDetection appends d to the session log, then indexes and publishes it.
func (p *Pipeline) logDetection(r *run, d model.Detection, now time.Time, frameIndex int) {
	rec := model.NewDetectionRecord(d, now, frameIndex)
	rec.SessionID = r.session.ID
	if err := r.session.AppendDetection(rec); err != nil {
		p.logger.Error("Failed to log detection %s: %v", d.Label, err)
		return
	}
	p.deps.Metrics.Detections.Add(1)

	if p.deps.Index != nil {
		if err := p.deps.Index.InsertDetection(&rec); err != nil {
			p.deps.Metrics.IndexErrors.Add(1)
			p.logger.Warning("Failed to index detection: %v", err)
		}
	}
	if p.deps.Events != nil {
		p.deps.Events.PublishDetection(dto.DetectionEvent{
			Time:     now,
			Type:     d.Label,
			Accuracy: d.Confidence,
			Frame:    frameIndex,
		})
	}
}

// sendAlert writes label to the alert link. A failed write is logged only; the gate stays fired.
func (p *Pipeline) sendAlert(label string) {
	if p.deps.Alert == nil {
		p.logger.Warning("Alert for %s fired with no alert channel configured", label)
		return
	}
	p.deps.Metrics.AlertsSent.Add(1)
	if err := p.deps.Alert.Send(label); err != nil {
		p.deps.Metrics.AlertErrors.Add(1)
		p.logger.Error("Failed to send alert %s: %v", label, err)
		return
	}
	p.logger.Info("Alert sent: %s", label)
}
