package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smartwaste/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabase_Connection(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "test.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestResultRepository_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestDB(t))

	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	wet1 := models.NewClassificationResult(models.LabelWet, 0.91, "BIN_01", today.Add(8*time.Hour))
	wet2 := models.NewClassificationResult(models.LabelWet, 0.72, "BIN_01", today.Add(9*time.Hour))
	rec := models.NewClassificationResult(models.LabelRecycle, 0.66, "BIN_02", today.Add(-2*time.Hour))

	for _, r := range []models.ClassificationResult{wet1, wet2, rec} {
		if err := repo.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	total, err := repo.Count(ctx, models.ResultFilter{})
	if err != nil || total != 3 {
		t.Fatalf("Expected 3 results, got %d (%v)", total, err)
	}

	wet, _ := repo.Count(ctx, models.ResultFilter{BinTypes: []string{"wet"}})
	if wet != 2 {
		t.Errorf("Expected 2 wet, got %d", wet)
	}

	inToday, _ := repo.Count(ctx, models.ResultFilter{Since: today, Until: today.AddDate(0, 0, 1)})
	if inToday != 2 {
		t.Errorf("Expected 2 results today, got %d", inToday)
	}

	yesterday, _ := repo.Count(ctx, models.ResultFilter{BinTypes: []string{"recycle"}, Since: today.AddDate(0, 0, -1), Until: today})
	if yesterday != 1 {
		t.Errorf("Expected 1 recycle yesterday, got %d", yesterday)
	}

	latest, err := repo.MostRecent(ctx, models.ResultFilter{BinTypes: []string{"wet"}})
	if err != nil || latest == nil {
		t.Fatalf("Expected most recent wet, got %v (%v)", latest, err)
	}
	if latest.ID != wet2.ID || !latest.Timestamp.Equal(wet2.Timestamp) {
		t.Errorf("Expected %s at %v, got %s at %v", wet2.ID, wet2.Timestamp, latest.ID, latest.Timestamp)
	}
	if latest.BinType != models.BinWet || latest.Recyclable {
		t.Errorf("Unexpected bin fields: %+v", latest)
	}

	none, err := repo.MostRecent(ctx, models.ResultFilter{BinTypes: []string{"hazardous"}})
	if err != nil || none != nil {
		t.Errorf("Expected nil most recent for hazardous, got %v (%v)", none, err)
	}
}

func TestResultRepository_ListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestDB(t))
	base := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

	var batch []models.ClassificationResult
	for i := 3; i >= 0; i-- {
		batch = append(batch, models.NewClassificationResult(models.LabelReject, 0.3, "BIN_01", base.Add(time.Duration(i)*time.Minute)))
	}
	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	all, err := repo.List(ctx, models.ResultFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Errorf("Results not in timestamp order at %d", i)
		}
	}

	limited, _ := repo.List(ctx, models.ResultFilter{Limit: 2})
	if len(limited) != 2 || !limited[1].Timestamp.Equal(base.Add(3*time.Minute)) {
		t.Errorf("Expected two most recent results, got %+v", limited)
	}
}

func TestResultRepository_DuplicateIDsIgnored(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestDB(t))

	base := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	first := models.NewClassificationResult(models.LabelWet, 0.9, "BIN_01", base)
	second := models.NewClassificationResult(models.LabelReject, 0.4, "BIN_01", base.Add(time.Minute))
	batch := []models.ClassificationResult{first, second}

	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("Re-importing the same batch failed: %v", err)
	}
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("Inserting a duplicate id failed: %v", err)
	}

	total, err := repo.Count(ctx, models.ResultFilter{})
	if err != nil || total != 2 {
		t.Errorf("Expected 2 results after duplicates, got %d (%v)", total, err)
	}
}

func TestBinStatusRepository_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewBinStatusRepository(newTestDB(t))

	if doc, err := repo.FindByTypes(ctx, []string{"reject", "dry"}); err != nil || doc != nil {
		t.Fatalf("Expected no document, got %v (%v)", doc, err)
	}

	if _, err := repo.Upsert(ctx, "dry", models.BinStatus{"today_count": 4, "fill_level": 40}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	stored, err := repo.Upsert(ctx, "dry", models.BinStatus{"fill_level": 55})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if stored["today_count"] != float64(4) || stored["fill_level"] != float64(55) {
		t.Errorf("Expected merged document, got %v", stored)
	}

	doc, err := repo.FindByTypes(ctx, []string{"reject", "dry"})
	if err != nil || doc == nil {
		t.Fatalf("Expected document via synonym, got %v (%v)", doc, err)
	}
	if doc.TypeName() != "dry" {
		t.Errorf("Expected type 'dry', got %q", doc.TypeName())
	}

	repo.Upsert(ctx, "reject", models.BinStatus{"total_count": 9})
	preferred, _ := repo.FindByTypes(ctx, []string{"reject", "dry"})
	if preferred.TypeName() != "reject" {
		t.Errorf("Expected canonical type to win, got %q", preferred.TypeName())
	}

	all, err := repo.List(ctx)
	if err != nil || len(all) != 2 {
		t.Errorf("Expected 2 documents, got %d (%v)", len(all), err)
	}
}
