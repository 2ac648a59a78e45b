package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"smartwaste/internal/logger"
	"smartwaste/internal/service/inference"
)

// InputSize is the square input resolution of the exported YOLO model.
const InputSize = 640

// DetectorService runs a YOLO ONNX export through the OpenCV DNN module.
// When the network cannot be loaded it stays usable and reports
// inference.ErrUnavailable from Predict.
type DetectorService struct {
	net        gocv.Net
	loaded     bool
	classNames []string
	threshold  float64
	modelPath  string
	logger     *logger.Logger
	mu         sync.Mutex // gocv.Net is not safe for concurrent Forward calls
}

// NewDetectorService creates a detector and attempts to load modelPath.
func NewDetectorService(modelPath string, classNames []string, threshold float64, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		classNames: classNames,
		threshold:  threshold,
		modelPath:  modelPath,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network, falling back to dummy mode: %v", err)
		return service
	}

	return service
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
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
	s.logger.Info("Detection network loaded: %s (classes: %v)", s.modelPath, s.classNames)
	return nil
}

// Available reports whether the network was loaded.
func (s *DetectorService) Available() bool {
	return s.loaded
}

// Predict decodes the image and returns every detection above the
// confidence threshold in anchor order.
func (s *DetectorService) Predict(imageBytes []byte) ([]inference.Detection, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inference.ErrUndecodable, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, inference.ErrUndecodable
	}

	if !s.loaded {
		return nil, inference.ErrUnavailable
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	s.mu.Unlock()
	defer output.Close()

	return s.decodeOutput(output)
}

// decodeOutput reads a [1, 4+classes, anchors] YOLOv8 head. Rows 0-3 are
// the box, the remaining rows are per-class scores.
func (s *DetectorService) decodeOutput(output gocv.Mat) ([]inference.Detection, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]
	numClasses := rows - 4

	head := output.Reshape(1, rows)
	defer head.Close()

	var results []inference.Detection
	for a := 0; a < anchors; a++ {
		bestClass, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if score := head.GetFloatAt(4+c, a); score > bestScore {
				bestClass, bestScore = c, score
			}
		}
		if bestClass < 0 || float64(bestScore) < s.threshold {
			continue
		}
		results = append(results, inference.Detection{
			Label:      s.classLabel(bestClass),
			Confidence: float64(bestScore),
		})
	}

	for i, det := range results {
		s.logger.Info("Detection [%d] %s (%.2f%%)", i, det.Label, det.Confidence*100)
	}
	return results, nil
}

// classLabel maps model class IDs to configured labels.
func (s *DetectorService) classLabel(classID int) string {
	if classID >= 0 && classID < len(s.classNames) {
		return s.classNames[classID]
	}
	return fmt.Sprintf("unknown%d", classID)
}

// Close releases the network.
func (s *DetectorService) Close() error {
	if s.loaded {
		return s.net.Close()
	}
	return nil
}
