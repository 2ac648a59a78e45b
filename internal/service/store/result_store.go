// Package store provides the append-only classification log. A durable
// repository is chosen once at startup; an in-process repository catches
// anything the durable one cannot take, so Append never fails.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/repository"
	"smartwaste/internal/repository/memory"
)

// stampResolution is the finest precision every backend stores; postgres
// TIMESTAMPTZ keeps microseconds.
const stampResolution = time.Microsecond

// ResultStore combines an optional durable repository with the in-memory
// fallback. Reads cover both.
type ResultStore struct {
	primary  repository.ResultRepository
	fallback *memory.ResultRepository
	backend  string
	timeout  time.Duration
	logger   *logger.Logger

	lastStamp time.Time
	stampMu   sync.Mutex
}

// New creates a store. primary may be nil, in which case everything lives
// in memory. backend names the primary for health reporting.
func New(primary repository.ResultRepository, backend string, timeout time.Duration, logger *logger.Logger) *ResultStore {
	if primary == nil {
		backend = "memory"
	}
	return &ResultStore{
		primary:  primary,
		fallback: memory.NewResultRepository(),
		backend:  backend,
		timeout:  timeout,
		logger:   logger,
	}
}

// Backend returns the name of the durable backend, or "memory".
func (s *ResultStore) Backend() string {
	return s.backend
}

// Durable reports whether a durable repository was configured.
func (s *ResultStore) Durable() bool {
	return s.primary != nil
}

// Append stores result and returns the stored copy. Timestamps are kept
// at microsecond precision and made strictly increasing across appends, so
// ordering by timestamp is insertion order in every sink. Durable failures
// are logged and the record goes to memory instead.
func (s *ResultStore) Append(ctx context.Context, result models.ClassificationResult) models.ClassificationResult {
	s.stampMu.Lock()
	ts := result.Timestamp.Truncate(stampResolution)
	if !s.lastStamp.IsZero() && !ts.After(s.lastStamp) {
		ts = s.lastStamp.Add(stampResolution)
	}
	result = result.WithTimestamp(ts)
	s.lastStamp = result.Timestamp
	s.stampMu.Unlock()

	if s.primary != nil {
		callCtx, cancel := s.callContext(ctx)
		err := s.primary.Insert(callCtx, result)
		cancel()
		if err == nil {
			return result
		}
		s.logger.Warning("Durable store append failed, keeping %s in memory: %v", result.ID, err)
	}

	s.fallback.Insert(ctx, result)
	return result
}

// CountAll returns the number of stored results.
func (s *ResultStore) CountAll(ctx context.Context) int {
	return s.count(ctx, models.ResultFilter{})
}

// CountByBinType counts results whose bin type is in types.
func (s *ResultStore) CountByBinType(ctx context.Context, types []string) int {
	return s.count(ctx, models.ResultFilter{BinTypes: types})
}

// CountByBinTypeInRange counts results in types with timestamp in [start, end).
func (s *ResultStore) CountByBinTypeInRange(ctx context.Context, types []string, start, end time.Time) int {
	return s.count(ctx, models.ResultFilter{BinTypes: types, Since: start, Until: end})
}

// MostRecent returns the latest result in types, or nil.
func (s *ResultStore) MostRecent(ctx context.Context, types []string) *models.ClassificationResult {
	filter := models.ResultFilter{BinTypes: types}

	latest, _ := s.fallback.MostRecent(ctx, filter)
	if s.primary != nil {
		callCtx, cancel := s.callContext(ctx)
		durable, err := s.primary.MostRecent(callCtx, filter)
		cancel()
		if err != nil {
			s.logger.Warning("Durable store most-recent query failed: %v", err)
		} else if durable != nil && (latest == nil || durable.Timestamp.After(latest.Timestamp)) {
			latest = durable
		}
	}
	return latest
}

// ListAll returns every stored result in timestamp order.
func (s *ResultStore) ListAll(ctx context.Context) []models.ClassificationResult {
	return s.List(ctx, models.ResultFilter{})
}

// List returns results matching filter in timestamp order. A positive
// Limit keeps the most recent entries.
func (s *ResultStore) List(ctx context.Context, filter models.ResultFilter) []models.ClassificationResult {
	results, _ := s.fallback.List(ctx, filter)
	if s.primary != nil {
		callCtx, cancel := s.callContext(ctx)
		durable, err := s.primary.List(callCtx, filter)
		cancel()
		if err != nil {
			s.logger.Warning("Durable store list failed: %v", err)
		} else if len(results) == 0 {
			results = durable
		} else {
			results = append(durable, results...)
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Timestamp.Before(results[j].Timestamp)
			})
		}
	}

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[len(results)-filter.Limit:]
	}
	if results == nil {
		results = []models.ClassificationResult{}
	}
	return results
}

func (s *ResultStore) count(ctx context.Context, filter models.ResultFilter) int {
	count, _ := s.fallback.Count(ctx, filter)
	if s.primary != nil {
		callCtx, cancel := s.callContext(ctx)
		durable, err := s.primary.Count(callCtx, filter)
		cancel()
		if err != nil {
			s.logger.Warning("Durable store count failed: %v", err)
		} else {
			count += durable
		}
	}
	return count
}

func (s *ResultStore) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
