package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"cctvstation/internal/dto"
	"cctvstation/internal/model"
	"cctvstation/internal/timeutil"

	"github.com/google/uuid"
)

const (
	// LogFileName is the per-session detection log.
	LogFileName = "detection_results.csv"
	// FramesDirName holds one JPEG per stored frame.
	FramesDirName = "frames"
	// VideoFileName is the encoded session video.
	VideoFileName = "output_video.avi"

	sessionDirLayout = "Jan_02_2006_15_04_05"
	maxDirAttempts   = 100
)

// LogHeader is written once, as the first row of every session log.
var LogHeader = []string{"Label", "X coordinate", "Y coordinate", "Confidence", "Time", "Frame Count"}

// VideoEncoder appends frames to an encoded video stream.
type VideoEncoder interface {
	Write(img image.Image) error
	Close() error
}

// EncoderFactory opens a VideoEncoder bound to a fixed frame rate and resolution.
type EncoderFactory func(path string, fps float64, width, height int) (VideoEncoder, error)

// Options configure CreateSession.
type Options struct {
	Width       int
	Height      int
	FPS         float64
	JPEGQuality int
	Clock       timeutil.Clock
	NewEncoder  EncoderFactory
}

// Session owns the on-disk layout of one pipeline run.
type Session struct {
	ID        string
	CreatedAt time.Time
	RootDir   string
	LogPath   string
	FramesDir string
	VideoPath string

	mu            sync.Mutex
	frameCount    int
	headerWritten bool
	closed        bool
	logFile       *os.File
	log           *csv.Writer
	encoder       VideoEncoder
	clock         timeutil.Clock
	jpegQuality   int
}

// CreateSession creates a timestamped directory tree under baseDir and opens its log and video sinks.
func CreateSession(baseDir string, opts Options) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.NewEncoder == nil {
		return nil, errors.New("no video encoder configured")
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = jpeg.DefaultQuality
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	now := opts.Clock.Now()
	root, err := makeSessionDir(baseDir, now.Format(sessionDirLayout))
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		RootDir:     root,
		LogPath:     filepath.Join(root, LogFileName),
		FramesDir:   filepath.Join(root, FramesDirName),
		VideoPath:   filepath.Join(root, VideoFileName),
		clock:       opts.Clock,
		jpegQuality: opts.JPEGQuality,
	}

	if err := os.MkdirAll(s.FramesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	logFile, err := os.OpenFile(s.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open detection log: %w", err)
	}
	s.logFile = logFile
	s.log = csv.NewWriter(logFile)

	encoder, err := opts.NewEncoder(s.VideoPath, opts.FPS, opts.Width, opts.Height)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open video encoder: %w", err)
	}
	s.encoder = encoder

	return s, nil
}

// makeSessionDir creates baseDir/name, adding a numeric suffix when a run already used that second.
func makeSessionDir(baseDir, name string) (string, error) {
	candidate := filepath.Join(baseDir, name)
	for i := 1; i <= maxDirAttempts; i++ {
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to create session directory: %w", err)
		}
		candidate = filepath.Join(baseDir, fmt.Sprintf("%s_%d", name, i+1))
	}
	return "", fmt.Errorf("failed to create session directory: %s already used %d times", name, maxDirAttempts)
}

// AppendDetection writes rec to the session log, preceded by the header on first use.
func (s *Session) AppendDetection(rec model.DetectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session closed")
	}

	if !s.headerWritten {
		if err := s.log.Write(LogHeader); err != nil {
			return fmt.Errorf("failed to write log header: %w", err)
		}
		s.headerWritten = true
	}

	row := []string{
		rec.Label,
		strconv.Itoa(rec.X),
		strconv.Itoa(rec.Y),
		strconv.FormatFloat(rec.Confidence, 'f', 2, 64),
		rec.Time.Format("15:04:05"),
		strconv.Itoa(rec.FrameIndex),
	}
	if err := s.log.Write(row); err != nil {
		return fmt.Errorf("failed to write detection: %w", err)
	}
	s.log.Flush()
	if err := s.log.Error(); err != nil {
		return fmt.Errorf("failed to flush detection log: %w", err)
	}
	return nil
}

// StoreFrame persists img as the next frame and returns its index.
// The frame counter only advances once both the image file and the video frame are written.
func (s *Session) StoreFrame(img image.Image) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.New("session closed")
	}

	index := s.frameCount
	if err := s.writeImage(index, img); err != nil {
		return index, err
	}
	if err := s.encoder.Write(img); err != nil {
		return index, fmt.Errorf("failed to encode video frame %d: %w", index, err)
	}

	s.frameCount++
	return index, nil
}

func (s *Session) writeImage(index int, img image.Image) error {
	path := filepath.Join(s.FramesDir, FrameFileName(index))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: s.jpegQuality}); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode frame %d: %w", index, err)
	}
	return file.Close()
}

// FrameFileName is the image file name for the zero-based frame index.
func FrameFileName(index int) string {
	return fmt.Sprintf("frame_%d.jpg", index)
}

// FrameCount returns how many frames have been stored so far, which is also the next frame's index.
func (s *Session) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// Now returns the session clock's time, used to stamp detection records.
func (s *Session) Now() time.Time {
	return s.clock.Now()
}

// Info returns a snapshot safe to hand to other goroutines.
func (s *Session) Info() dto.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dto.SessionInfo{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		RootDir:    s.RootDir,
		LogPath:    s.LogPath,
		FramesDir:  s.FramesDir,
		VideoPath:  s.VideoPath,
		FrameCount: s.frameCount,
	}
}

// Close releases the video encoder and flushes the log. Calls after the first are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.encoder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close video encoder: %w", err))
	}
	s.log.Flush()
	if err := s.log.Error(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush detection log: %w", err))
	}
	if err := s.logFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close detection log: %w", err))
	}
	return errors.Join(errs...)
}
