// Package capture reads frames from a camera index or stream URI through OpenCV.
package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"cctvstation/internal/model"
	"cctvstation/internal/pipeline"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// ErrUnavailable is returned when the source cannot be opened.
var ErrUnavailable = errors.New("capture source unavailable")

// ErrNoFrame is returned by Read when the source produced nothing this time.
// A device that is no longer opened reports pipeline.ErrSourceClosed instead.
var ErrNoFrame = errors.New("no frame available")

// ProbeLimit is how many device indices Enumerate tries by default.
const ProbeLimit = 5

// Device wraps an opened OpenCV capture.
type Device struct {
	mu     sync.Mutex
	source string
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	index  int
	closed bool
}

// Open opens a camera by index ("0") or by file/stream URI.
func Open(source string) (*Device, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", ErrUnavailable)
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(source); convErr == nil {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		vc, err = gocv.OpenVideoCapture(source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, source)
	}

	return &Device{source: source, cap: vc, mat: gocv.NewMat()}, nil
}

// Source returns the source string the device was opened with.
func (d *Device) Source() string { return d.source }

// Read grabs the next frame. Frames are indexed in read order starting at 0.
func (d *Device) Read() (*model.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || !d.cap.IsOpened() {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrSourceClosed, d.source)
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, ErrNoFrame
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}

	frame := &model.Frame{Index: d.index, Image: toRGBA(img)}
	d.index++
	return frame, nil
}

// Close releases the capture. It is safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return errors.Join(d.mat.Close(), d.cap.Close())
}

// Enumerate probes device indices [0, limit) and returns those that open.
func Enumerate(limit int) []int {
	if limit <= 0 {
		limit = ProbeLimit
	}
	var found []int
	for i := 0; i < limit; i++ {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if vc.IsOpened() {
			found = append(found, i)
		}
		vc.Close()
	}
	return found
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
