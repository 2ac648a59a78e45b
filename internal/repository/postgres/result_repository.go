package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"smartwaste/internal/models"
)

// ResultRepository implements repository.ResultRepository on Postgres.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new Postgres result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const insertResultSQL = `
	INSERT INTO waste_logs (id, waste_type, bin_type, recyclable, confidence, device_id, ts)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

const selectResultSQL = `SELECT id, waste_type, bin_type, recyclable, confidence, device_id, ts FROM waste_logs`

// Insert adds a classification result.
func (r *ResultRepository) Insert(ctx context.Context, res models.ClassificationResult) error {
	if _, err := r.db.Pool().Exec(ctx, insertResultSQL, resultArgs(res)...); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// InsertBatch adds multiple results in one round trip.
func (r *ResultRepository) InsertBatch(ctx context.Context, results []models.ClassificationResult) error {
	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(insertResultSQL, resultArgs(res)...)
	}

	br := r.db.Pool().SendBatch(ctx, batch)
	defer br.Close()

	for _, res := range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", res.ID, err)
		}
	}
	return nil
}

// Count returns the number of results matching filter.
func (r *ResultRepository) Count(ctx context.Context, filter models.ResultFilter) (int, error) {
	where, args := whereClause(filter)
	var count int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM waste_logs`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// MostRecent returns the latest matching result, or nil.
func (r *ResultRepository) MostRecent(ctx context.Context, filter models.ResultFilter) (*models.ClassificationResult, error) {
	where, args := whereClause(filter)
	row := r.db.Pool().QueryRow(ctx, selectResultSQL+where+` ORDER BY ts DESC, seq DESC LIMIT 1`, args...)

	res, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get most recent result: %w", err)
	}
	return &res, nil
}

// List returns matching results in timestamp order. A positive Limit keeps
// the most recent entries.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ClassificationResult, error) {
	where, args := whereClause(filter)
	query := selectResultSQL + where + ` ORDER BY ts DESC, seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]models.ClassificationResult, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func scanResult(row pgx.Row) (models.ClassificationResult, error) {
	var (
		res       models.ClassificationResult
		wasteType string
		binType   string
	)
	if err := row.Scan(&res.ID, &wasteType, &binType, &res.Recyclable, &res.Confidence, &res.DeviceID, &res.Timestamp); err != nil {
		return res, err
	}
	res.WasteLabel = models.WasteLabel(wasteType)
	res.BinType = models.BinType(binType)
	res.Timestamp = res.Timestamp.UTC()
	return res, nil
}

func resultArgs(res models.ClassificationResult) []interface{} {
	return []interface{}{
		res.ID, string(res.WasteLabel), string(res.BinType), res.Recyclable,
		res.Confidence, res.DeviceID, res.Timestamp.UTC(),
	}
}

func whereClause(filter models.ResultFilter) (string, []interface{}) {
	where := ` WHERE TRUE`
	args := []interface{}{}

	if len(filter.BinTypes) > 0 {
		args = append(args, filter.BinTypes)
		where += ` AND bin_type = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		where += ` AND ts >= $` + strconv.Itoa(len(args))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until.UTC())
		where += ` AND ts < $` + strconv.Itoa(len(args))
	}
	return where, args
}
