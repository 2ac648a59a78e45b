package memory

import (
	"context"
	"sort"
	"sync"

	"smartwaste/internal/models"
)

// ResultRepository is an in-process ResultRepository. Contents are lost on
// restart.
type ResultRepository struct {
	results []models.ClassificationResult
	mu      sync.RWMutex
}

// NewResultRepository creates an empty in-memory repository.
func NewResultRepository() *ResultRepository {
	return &ResultRepository{}
}

// Insert appends a result.
func (r *ResultRepository) Insert(_ context.Context, result models.ClassificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// InsertBatch appends results in order.
func (r *ResultRepository) InsertBatch(_ context.Context, results []models.ClassificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, results...)
	return nil
}

// Count returns the number of results matching filter.
func (r *ResultRepository) Count(_ context.Context, filter models.ResultFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, res := range r.results {
		if filter.Matches(res) {
			count++
		}
	}
	return count, nil
}

// MostRecent returns the latest matching result; among equal timestamps
// the last inserted wins.
func (r *ResultRepository) MostRecent(_ context.Context, filter models.ResultFilter) (*models.ClassificationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.ClassificationResult
	for i := range r.results {
		res := r.results[i]
		if !filter.Matches(res) {
			continue
		}
		if latest == nil || !res.Timestamp.Before(latest.Timestamp) {
			latest = &res
		}
	}
	return latest, nil
}

// List returns a snapshot of matching results ordered by timestamp, then
// insertion order. A positive Limit keeps the most recent entries.
func (r *ResultRepository) List(_ context.Context, filter models.ResultFilter) ([]models.ClassificationResult, error) {
	r.mu.RLock()
	matched := make([]models.ClassificationResult, 0, len(r.results))
	for _, res := range r.results {
		if filter.Matches(res) {
			matched = append(matched, res)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[len(matched)-filter.Limit:]
	}
	return matched, nil
}
