// Package inference defines the contract of the external detection model.
package inference

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var (
	// ErrUnavailable is returned when no model could be loaded.
	ErrUnavailable = errors.New("inference model unavailable")
	// ErrUndecodable is returned when the payload is not a supported image.
	ErrUndecodable = errors.New("image could not be decoded")
)

// Detection is one labelled detection.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Inferencer runs the detection model on encoded image bytes. Predict
// returns detections in model order; an empty slice means nothing was
// found.
type Inferencer interface {
	Predict(image []byte) ([]Detection, error)
	Available() bool
}

// Dummy is the collaborator used when no model is loaded. It validates the
// image and always reports ErrUnavailable.
type Dummy struct{}

// Predict validates the payload and returns ErrUnavailable.
func (Dummy) Predict(img []byte) ([]Detection, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}

// Available always reports false.
func (Dummy) Available() bool { return false }

// Validate checks that img has a decodable JPEG, PNG or GIF header.
func Validate(img []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return nil
}
