package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"cctvstation/internal/config"
	"cctvstation/internal/logger"
	"cctvstation/internal/model"
	"cctvstation/internal/service/ai/yolo"

	"gocv.io/x/gocv"
)

const (
	// InputSize is the square input edge of the YOLOv8 export.
	InputSize = 640
	// NMSThreshold is the IoU above which overlapping boxes are suppressed.
	NMSThreshold = 0.45
)

// ErrNotInitialized is returned by Detect when no network could be loaded.
var ErrNotInitialized = errors.New("detection network not initialized")

// DetectorService runs a YOLOv8 ONNX model over single frames.
type DetectorService struct {
	net        gocv.Net
	loaded     bool
	mutex      sync.Mutex
	modelPath  string
	classNames []string
	floor      float32
	logger     *logger.Logger
}

// NewDetectorService creates a detector with the configured model and class names.
// It attempts to initialize the underlying DNN network.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		modelPath:  config.ModelPath,
		classNames: config.ClassNames,
		floor:      float32(config.ConfidenceFloor),
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the ONNX network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNet(s.modelPath, "")
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.loaded = true
	s.logger.Info("Detection network initialized from %s (%d classes)", s.modelPath, len(s.classNames))
	return nil
}

// Ready reports whether a model is loaded.
func (s *DetectorService) Ready() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.loaded
}

// Detect runs the model on img and returns labelled boxes in frame coordinates,
// strongest first, with confidence rounded up to two decimals.
func (s *DetectorService) Detect(img image.Image) ([]model.Detection, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.loaded {
		return nil, ErrNotInitialized
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// [1, 4+nc, anchors]
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output dims %v", sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	scaleX := float64(mat.Cols()) / InputSize
	scaleY := float64(mat.Rows()) / InputSize
	cands, err := yolo.Decode(data, sizes[1], sizes[2], scaleX, scaleY, mat.Cols(), mat.Rows(), s.floor)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return []model.Detection{}, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.Box.Rect()
		scores[i] = c.Score
	}
	keep := gocv.NMSBoxes(boxes, scores, s.floor, NMSThreshold)

	results := yolo.ToDetections(cands, keep, s.classNames)
	for _, object := range results {
		s.logger.Info("Detected %s (%.2f)", object.Label, object.Confidence)
	}
	return results, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.loaded {
		s.loaded = false
		return s.net.Close()
	}
	return nil
}
