package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WasteLabel is the class reported by the detector.
type WasteLabel string

const (
	LabelHazardous WasteLabel = "hazardous"
	LabelRecycle   WasteLabel = "recycle"
	LabelReject    WasteLabel = "reject"
	LabelWet       WasteLabel = "wet"
)

// BinType is the physical bin a classified item is routed to.
type BinType string

const (
	BinHazardous BinType = "hazardous"
	BinRecycle   BinType = "recycle"
	BinReject    BinType = "reject"
	BinWet       BinType = "wet"
)

// BinTypes lists the canonical bins in dashboard order.
var BinTypes = []BinType{BinWet, BinReject, BinRecycle, BinHazardous}

// ParseWasteLabel normalizes a raw detector label. The second return is
// false when the label is not one of the four known classes, in which case
// LabelReject is returned.
func ParseWasteLabel(raw string) (WasteLabel, bool) {
	switch label := WasteLabel(strings.ToLower(strings.TrimSpace(raw))); label {
	case LabelHazardous, LabelRecycle, LabelReject, LabelWet:
		return label, true
	default:
		return LabelReject, false
	}
}

// BinFor maps a label to its bin and whether the item is recyclable.
func BinFor(label WasteLabel) (BinType, bool) {
	switch label {
	case LabelWet:
		return BinWet, false
	case LabelRecycle:
		return BinRecycle, true
	case LabelHazardous:
		return BinHazardous, false
	default:
		return BinReject, false
	}
}

// ClassificationResult is one classification event. BinType and Recyclable
// are derived from WasteLabel; build values with NewClassificationResult.
// Records read back from storage may carry legacy labels such as "dry".
type ClassificationResult struct {
	ID         string     `json:"id"`
	WasteLabel WasteLabel `json:"waste_type"`
	BinType    BinType    `json:"bin_type"`
	Recyclable bool       `json:"recyclable"`
	Confidence float64    `json:"confidence"`
	DeviceID   string     `json:"device_id"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewClassificationResult builds a result with derived bin fields, a fresh
// ID and a UTC timestamp. Confidence is clamped to [0,1].
func NewClassificationResult(label WasteLabel, confidence float64, deviceID string, ts time.Time) ClassificationResult {
	bin, recyclable := BinFor(label)
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return ClassificationResult{
		ID:         uuid.NewString(),
		WasteLabel: label,
		BinType:    bin,
		Recyclable: recyclable,
		Confidence: confidence,
		DeviceID:   deviceID,
		Timestamp:  ts.UTC(),
	}
}

// WithTimestamp returns a copy stamped with ts.
func (r ClassificationResult) WithTimestamp(ts time.Time) ClassificationResult {
	r.Timestamp = ts.UTC()
	return r
}

// ResultFilter selects stored results. Zero values leave a dimension
// unconstrained; the time range is half-open [Since, Until).
type ResultFilter struct {
	BinTypes []string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Matches reports whether r satisfies the filter, ignoring Limit.
func (f ResultFilter) Matches(r ClassificationResult) bool {
	if len(f.BinTypes) > 0 {
		found := false
		for _, bt := range f.BinTypes {
			if string(r.BinType) == bt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.Timestamp.Before(f.Until) {
		return false
	}
	return true
}
