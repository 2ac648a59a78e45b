package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/service/handshake"
	"smartwaste/internal/service/inference"
)

const (
	// DummyLabel and DummyConfidence are reported when no model is loaded.
	DummyLabel      = models.LabelHazardous
	DummyConfidence = 0.50
	// NoDetectionLabel and NoDetectionConfidence are reported when the model
	// finds nothing; such items go to manual sorting.
	NoDetectionLabel      = models.LabelReject
	NoDetectionConfidence = 0.30
)

// ClientInputError marks a request the caller should not retry unchanged.
type ClientInputError struct {
	Reason string
	Err    error
}

func (e *ClientInputError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ClientInputError) Unwrap() error {
	return e.Err
}

// ErrEmptyInput is returned for an empty upload.
var ErrEmptyInput = &ClientInputError{Reason: "no image"}

// ResultAppender persists results. Append must not fail.
type ResultAppender interface {
	Append(ctx context.Context, result models.ClassificationResult) models.ClassificationResult
}

// ImageArchiver keeps a copy of images that produced a real detection.
type ImageArchiver interface {
	AddImage(data []byte, label string)
}

// Publisher forwards results to live subscribers.
type Publisher interface {
	PublishClassification(result models.ClassificationResult)
}

// ClassificationPipeline turns an uploaded image into a stored
// classification and updates the handshake state.
type ClassificationPipeline struct {
	inferencer  inference.Inferencer
	coordinator *handshake.CaptureCoordinator
	cache       *handshake.LatestResultCache
	store       ResultAppender
	archiver    ImageArchiver
	publisher   Publisher
	logger      *logger.Logger
	now         func() time.Time
}

// NewClassificationPipeline wires the pipeline collaborators.
func NewClassificationPipeline(inferencer inference.Inferencer, coordinator *handshake.CaptureCoordinator,
	cache *handshake.LatestResultCache, store ResultAppender, logger *logger.Logger) *ClassificationPipeline {
	return &ClassificationPipeline{
		inferencer:  inferencer,
		coordinator: coordinator,
		cache:       cache,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// UseArchiver sets where images with real detections are copied.
func (p *ClassificationPipeline) UseArchiver(a ImageArchiver) {
	p.archiver = a
}

// UsePublisher sets where results are broadcast.
func (p *ClassificationPipeline) UsePublisher(pub Publisher) {
	p.publisher = pub
}

// Classify runs inference on image and, once a label is determined,
// updates the latest-result cache, acknowledges the capture flag and
// appends the result. On any error before a label is determined none of
// these effects happen and the capture flag stays armed. A panic anywhere
// in the pipeline is returned as an internal error.
func (p *ClassificationPipeline) Classify(ctx context.Context, image []byte, deviceID string) (result models.ClassificationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = models.ClassificationResult{}
			err = fmt.Errorf("classification panicked: %v", r)
		}
	}()
	return p.classify(ctx, image, deviceID)
}

func (p *ClassificationPipeline) classify(ctx context.Context, image []byte, deviceID string) (models.ClassificationResult, error) {
	if len(image) == 0 {
		return models.ClassificationResult{}, ErrEmptyInput
	}

	detections, err := p.inferencer.Predict(image)
	dummy := false
	switch {
	case errors.Is(err, inference.ErrUndecodable):
		return models.ClassificationResult{}, &ClientInputError{Reason: "invalid image", Err: err}
	case errors.Is(err, inference.ErrUnavailable):
		dummy = true
	case err != nil:
		return models.ClassificationResult{}, fmt.Errorf("inference failed: %w", err)
	}

	var (
		label      models.WasteLabel
		confidence float64
	)
	switch {
	case dummy:
		label, confidence = DummyLabel, DummyConfidence
		p.logger.Info("Inference unavailable, using dummy prediction %s (%.2f)", label, confidence)
	case len(detections) == 0:
		label, confidence = NoDetectionLabel, NoDetectionConfidence
		p.logger.Info("No waste detected, defaulting to %s", label)
	default:
		best := bestDetection(detections)
		known := false
		label, known = models.ParseWasteLabel(best.Label)
		if !known {
			p.logger.Warning("Unknown detector label %q mapped to %s", best.Label, label)
		}
		confidence = best.Confidence
		p.logger.Info("Predicted %s (confidence %.2f%%) from %d detection(s)", label, confidence*100, len(detections))
	}

	result := models.NewClassificationResult(label, confidence, deviceID, p.now())

	p.cache.Set(label)
	p.coordinator.AcknowledgeCapture()
	stored := p.store.Append(context.WithoutCancel(ctx), result)

	if p.archiver != nil && !dummy && len(detections) > 0 {
		p.archiver.AddImage(image, string(label))
	}
	if p.publisher != nil {
		p.publisher.PublishClassification(stored)
	}

	return stored, nil
}

// bestDetection returns the highest-confidence detection; the first one
// wins ties.
func bestDetection(detections []inference.Detection) inference.Detection {
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best
}
