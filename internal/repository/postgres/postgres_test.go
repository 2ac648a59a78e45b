package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"smartwaste/internal/models"
)

// Runs against a real server only when TEST_DATABASE_URL is set.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, url)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	if _, err := db.Pool().Exec(ctx, `TRUNCATE waste_logs, bin_status`); err != nil {
		t.Fatalf("Failed to truncate: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestWhereClause(t *testing.T) {
	since := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	where, args := whereClause(models.ResultFilter{
		BinTypes: []string{"reject", "dry"},
		Since:    since,
		Until:    since.AddDate(0, 0, 1),
	})

	for _, part := range []string{"bin_type = ANY($1)", "ts >= $2", "ts < $3"} {
		if !strings.Contains(where, part) {
			t.Errorf("Expected %q in %q", part, where)
		}
	}
	if len(args) != 3 {
		t.Errorf("Expected 3 args, got %d", len(args))
	}

	where, args = whereClause(models.ResultFilter{})
	if where != " WHERE TRUE" || len(args) != 0 {
		t.Errorf("Unexpected empty clause %q %v", where, args)
	}
}

func TestResultRepository_Roundtrip(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestDB(t))
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := models.NewClassificationResult(models.LabelWet, 0.9, "BIN_01", base)
	second := models.NewClassificationResult(models.LabelRecycle, 0.8, "BIN_01", base.Add(time.Second))
	if err := repo.InsertBatch(ctx, []models.ClassificationResult{first, second}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	count, err := repo.Count(ctx, models.ResultFilter{BinTypes: []string{"wet"}})
	if err != nil || count != 1 {
		t.Errorf("Expected 1 wet, got %d (%v)", count, err)
	}

	latest, err := repo.MostRecent(ctx, models.ResultFilter{})
	if err != nil || latest == nil || latest.ID != second.ID {
		t.Errorf("Expected %s most recent, got %v (%v)", second.ID, latest, err)
	}

	all, err := repo.List(ctx, models.ResultFilter{})
	if err != nil || len(all) != 2 || all[0].ID != first.ID {
		t.Errorf("Unexpected list %v (%v)", all, err)
	}
}

func TestBinStatusRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewBinStatusRepository(newTestDB(t))

	if _, err := repo.Upsert(ctx, "dry", models.BinStatus{"today_count": 2}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	doc, err := repo.Upsert(ctx, "dry", models.BinStatus{"fill_level": 30})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if doc["today_count"] != float64(2) || doc["fill_level"] != float64(30) {
		t.Errorf("Expected merged document, got %v", doc)
	}

	found, err := repo.FindByTypes(ctx, []string{"reject", "dry"})
	if err != nil || found == nil || found.TypeName() != "dry" {
		t.Errorf("Expected dry document, got %v (%v)", found, err)
	}
}
