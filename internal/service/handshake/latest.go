package handshake

import (
	"sync"
	"time"

	"smartwaste/internal/models"
)

// LatestResultCache is a single slot holding the most recent label for the
// sensor node. A newer Set overwrites an unconsumed one; Consume hands the
// value out once and resets the slot to the default label.
type LatestResultCache struct {
	label        models.WasteLabel
	updatedAt    *time.Time
	defaultLabel models.WasteLabel
	now          func() time.Time
	mu           sync.Mutex
}

// NewLatestResultCache creates a cache holding defaultLabel.
func NewLatestResultCache(defaultLabel models.WasteLabel) *LatestResultCache {
	return &LatestResultCache{
		label:        defaultLabel,
		defaultLabel: defaultLabel,
		now:          time.Now,
	}
}

// Set overwrites the held label and stamps the current UTC time.
func (c *LatestResultCache) Set(label models.WasteLabel) {
	ts := c.now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
	c.updatedAt = &ts
}

// Consume returns the held label and resets it to the default. The
// timestamp of the last Set is kept.
func (c *LatestResultCache) Consume() models.WasteLabel {
	c.mu.Lock()
	defer c.mu.Unlock()
	label := c.label
	c.label = c.defaultLabel
	return label
}

// Peek returns the held label and the time of the last Set without
// consuming it.
func (c *LatestResultCache) Peek() (models.WasteLabel, *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updatedAt == nil {
		return c.label, nil
	}
	ts := *c.updatedAt
	return c.label, &ts
}
