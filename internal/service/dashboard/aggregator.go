// Package dashboard builds per-bin collection statistics by reconciling
// the optional bin status source with the classification log.
package dashboard

import (
	"context"
	"time"

	"smartwaste/internal/dto"
	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/repository"
)

// ResultCounter is the read side of the classification log.
type ResultCounter interface {
	CountByBinType(ctx context.Context, types []string) int
	CountByBinTypeInRange(ctx context.Context, types []string, start, end time.Time) int
	MostRecent(ctx context.Context, types []string) *models.ClassificationResult
}

// Aggregator computes dashboard data on every call; nothing is cached.
type Aggregator struct {
	status       repository.BinStatusRepository
	results      ResultCounter
	capacity     float64
	todayIsTotal bool
	timeout      time.Duration
	logger       *logger.Logger
	now          func() time.Time
}

// NewAggregator creates an aggregator. status may be nil. When todayIsTotal
// is set the all-time total is reported as today's collection, which is
// what the dashboard frontend displays prominently. A positive timeout
// bounds each status lookup.
func NewAggregator(status repository.BinStatusRepository, results ResultCounter, capacity float64, todayIsTotal bool,
	timeout time.Duration, logger *logger.Logger) *Aggregator {
	return &Aggregator{
		status:       status,
		results:      results,
		capacity:     capacity,
		todayIsTotal: todayIsTotal,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Build returns statistics for all four bins. The grand total is the sum
// of the per-bin totals.
func (a *Aggregator) Build(ctx context.Context) dto.DashboardData {
	now := a.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	data := dto.DashboardData{Bins: make([]dto.BinData, 0, len(models.BinTypes))}
	for _, bt := range models.BinTypes {
		bin := a.buildBin(ctx, bt, todayStart)
		data.Bins = append(data.Bins, bin)
		data.Total += bin.TotalCollection

		switch bt {
		case models.BinWet:
			data.Wet = bin.TotalCollection
		case models.BinReject:
			data.Reject = bin.TotalCollection
		case models.BinRecycle:
			data.Recycle = bin.TotalCollection
		case models.BinHazardous:
			data.Hazardous = bin.TotalCollection
		}
	}
	return data
}

func (a *Aggregator) buildBin(ctx context.Context, bt models.BinType, todayStart time.Time) dto.BinData {
	names := SynonymsFor(bt)
	tomorrowStart := todayStart.AddDate(0, 0, 1)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	var (
		today, yesterday, total int
		fillLevel               float64
		capacity                = a.capacity
		lastUpdated             *time.Time
	)

	if doc := a.findStatus(ctx, names); doc != nil {
		today = lookupCount(doc, todayCountKeys)
		yesterday = lookupCount(doc, yesterdayCountKeys)
		total = lookupCount(doc, totalCountKeys)
		if v, ok := lookupNumber(doc, fillLevelKeys); ok {
			fillLevel = v
		}
		if v, ok := lookupNumber(doc, capacityKeys); ok && v > 0 {
			capacity = v
		}
		lastUpdated = lookupTime(doc, lastUpdatedKeys)
	}

	// A zero in the status source is treated as stale, never as truth.
	if total == 0 || today == 0 {
		total = max(total, a.results.CountByBinType(ctx, names))
		today = max(today, a.results.CountByBinTypeInRange(ctx, names, todayStart, tomorrowStart))
		yesterday = max(yesterday, a.results.CountByBinTypeInRange(ctx, names, yesterdayStart, todayStart))
	}

	if lastUpdated == nil {
		if latest := a.results.MostRecent(ctx, names); latest != nil {
			ts := latest.Timestamp.UTC()
			lastUpdated = &ts
		}
	}

	todayCollection := today
	if a.todayIsTotal {
		todayCollection = total
	}

	m := meta[bt]
	return dto.BinData{
		ID:                  m.id,
		Type:                m.key,
		BinType:             bt,
		Label:               m.label,
		FillLevel:           fillLevel,
		TotalCapacity:       capacity,
		TodayCollection:     todayCollection,
		YesterdayCollection: yesterday,
		TotalCollection:     total,
		LastUpdated:         lastUpdated,
	}
}

func (a *Aggregator) findStatus(ctx context.Context, names []string) models.BinStatus {
	if a.status == nil {
		return nil
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	doc, err := a.status.FindByTypes(ctx, names)
	if err != nil {
		a.logger.Warning("Bin status lookup for %v failed, using classification log: %v", names, err)
		return nil
	}
	return doc
}
