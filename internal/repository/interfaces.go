package repository

import (
	"context"

	"smartwaste/internal/models"
)

// ResultRepository persists classification results. Implementations keep
// results retrievable in timestamp order.
type ResultRepository interface {
	// Create operations
	Insert(ctx context.Context, result models.ClassificationResult) error
	InsertBatch(ctx context.Context, results []models.ClassificationResult) error

	// Read operations
	Count(ctx context.Context, filter models.ResultFilter) (int, error)
	MostRecent(ctx context.Context, filter models.ResultFilter) (*models.ClassificationResult, error)
	List(ctx context.Context, filter models.ResultFilter) ([]models.ClassificationResult, error)
}

// BinStatusRepository reads per-bin summary documents.
type BinStatusRepository interface {
	// FindByTypes returns the first document whose bin type is one of
	// types, or nil when none matches.
	FindByTypes(ctx context.Context, types []string) (models.BinStatus, error)
	List(ctx context.Context) ([]models.BinStatus, error)
}

// BinStatusWriter is implemented by status sources that accept updates.
type BinStatusWriter interface {
	// Upsert merges fields into the document for binType and returns the
	// stored document.
	Upsert(ctx context.Context, binType string, fields models.BinStatus) (models.BinStatus, error)
}
