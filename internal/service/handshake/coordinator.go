// Package handshake holds the process-wide state shared between the sensor
// node, the camera node and the classifier: the capture flag and the
// latest-result slot.
package handshake

import "sync"

// CaptureCoordinator tracks whether the camera node should take a photo.
// It is IDLE (false) until an arrival is notified and returns to IDLE only
// when a classification succeeds. There is no timeout.
type CaptureCoordinator struct {
	captureRequired bool
	mu              sync.RWMutex
}

// NewCaptureCoordinator returns an IDLE coordinator.
func NewCaptureCoordinator() *CaptureCoordinator {
	return &CaptureCoordinator{}
}

// NotifyArrival arms the coordinator. It reports whether the call changed
// the state.
func (c *CaptureCoordinator) NotifyArrival() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := !c.captureRequired
	c.captureRequired = true
	return changed
}

// ShouldCapture reports the current flag without changing it.
func (c *CaptureCoordinator) ShouldCapture() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.captureRequired
}

// AcknowledgeCapture disarms the coordinator.
func (c *CaptureCoordinator) AcknowledgeCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captureRequired = false
}
