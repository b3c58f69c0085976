// Package video encodes session frames into an XVID AVI file.
package video

import (
	"fmt"
	"image"
	"sync"

	"cctvstation/internal/service/storage"

	"gocv.io/x/gocv"
)

// Codec is the fourcc used for session recordings.
const Codec = "XVID"

// Writer implements storage.VideoEncoder on top of an OpenCV VideoWriter.
type Writer struct {
	mu     sync.Mutex
	vw     *gocv.VideoWriter
	size   image.Point
	closed bool
}

var _ storage.VideoEncoder = (*Writer)(nil)

// NewWriter opens path for writing at fps with a fixed frame size. It matches storage.EncoderFactory.
func NewWriter(path string, fps float64, width, height int) (storage.VideoEncoder, error) {
	vw, err := gocv.VideoWriterFile(path, Codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("video writer %s did not open", path)
	}
	return &Writer{vw: vw, size: image.Pt(width, height)}, nil
}

// Write appends one frame. Frames of a different size are resized to the writer's size.
func (w *Writer) Write(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("video writer closed")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Cols() != w.size.X || mat.Rows() != w.size.Y {
		resized := gocv.NewMat()
		defer resized.Close()
		if err := gocv.Resize(mat, &resized, w.size, 0, 0, gocv.InterpolationLinear); err != nil {
			return fmt.Errorf("failed to resize frame: %w", err)
		}
		return w.vw.Write(resized)
	}
	return w.vw.Write(mat)
}

// Close finalizes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.vw.Close()
}
