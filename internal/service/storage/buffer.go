package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"smartwaste/internal/logger"
)

const timestampLayout = "2006-01-02_15-04-05.000"

type bufferedImage struct {
	timestamp string
	label     string
	data      []byte
}

// BufferService keeps copies of classified images in memory and
// periodically writes them to disk for model debugging.
type BufferService struct {
	imagesDir string
	limit     int
	interval  time.Duration
	images    []bufferedImage
	mu        sync.Mutex
	logger    *logger.Logger
	now       func() time.Time
}

// NewBufferService creates a buffer holding at most limit images between
// flushes. Images beyond the limit are dropped.
func NewBufferService(imagesDir string, limit int, interval time.Duration, logger *logger.Logger) *BufferService {
	if limit <= 0 {
		limit = 1
	}
	return &BufferService{
		imagesDir: imagesDir,
		limit:     limit,
		interval:  interval,
		images:    make([]bufferedImage, 0, limit),
		logger:    logger,
		now:       time.Now,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// AddImage buffers a copy of data tagged with label.
func (s *BufferService) AddImage(data []byte, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.limit {
		return
	}
	s.images = append(s.images, bufferedImage{
		timestamp: s.now().UTC().Format(timestampLayout),
		label:     sanitize(label),
		data:      append([]byte(nil), data...),
	})
}

// Pending returns the number of buffered images.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered images to disk and clears the buffer.
func (s *BufferService) FlushImages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for i, image := range s.images {
		filename := fmt.Sprintf("%s_%s.jpg", image.timestamp, image.label)
		if _, err := os.Stat(filepath.Join(s.imagesDir, filename)); err == nil {
			filename = fmt.Sprintf("%s_%s_%d.jpg", image.timestamp, image.label, i)
		}
		if err := os.WriteFile(filepath.Join(s.imagesDir, filename), image.data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d debug images to %s", savedCount, s.imagesDir)
	s.images = s.images[:0]
}

func sanitize(label string) string {
	label = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, label)
	if label == "" {
		return "unknown"
	}
	return label
}
