package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartwaste/internal/models"
)

// ResultRepository implements repository.ResultRepository for SQLite.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new SQLite result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Duplicate ids are skipped so re-running an import is harmless.
const insertResultSQL = `
	INSERT OR IGNORE INTO waste_logs (id, waste_type, bin_type, recyclable, confidence, device_id, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a classification result.
func (r *ResultRepository) Insert(ctx context.Context, res models.ClassificationResult) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().ExecContext(ctx, insertResultSQL, resultArgs(res)...); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// InsertBatch adds multiple results in a single transaction.
func (r *ResultRepository) InsertBatch(ctx context.Context, results []models.ClassificationResult) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertResultSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, resultArgs(res)...); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", res.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of results matching filter.
func (r *ResultRepository) Count(ctx context.Context, filter models.ResultFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM waste_logs`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// MostRecent returns the latest matching result, or nil.
func (r *ResultRepository) MostRecent(ctx context.Context, filter models.ResultFilter) (*models.ClassificationResult, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	row := r.db.Conn().QueryRowContext(ctx, selectResultSQL+where+` ORDER BY ts DESC, rowid DESC LIMIT 1`, args...)

	res, err := scanResult(row)
	if err == sql.ErrNoRows {
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
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := selectResultSQL + where + ` ORDER BY ts DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
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
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}

	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

const selectResultSQL = `SELECT id, waste_type, bin_type, recyclable, confidence, device_id, ts FROM waste_logs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(s scanner) (models.ClassificationResult, error) {
	var (
		res        models.ClassificationResult
		wasteType  string
		binType    string
		recyclable int
		ts         int64
	)
	if err := s.Scan(&res.ID, &wasteType, &binType, &recyclable, &res.Confidence, &res.DeviceID, &ts); err != nil {
		return res, err
	}
	res.WasteLabel = models.WasteLabel(wasteType)
	res.BinType = models.BinType(binType)
	res.Recyclable = recyclable != 0
	res.Timestamp = time.Unix(0, ts).UTC()
	return res, nil
}

func resultArgs(res models.ClassificationResult) []interface{} {
	recyclable := 0
	if res.Recyclable {
		recyclable = 1
	}
	return []interface{}{
		res.ID, string(res.WasteLabel), string(res.BinType), recyclable,
		res.Confidence, res.DeviceID, res.Timestamp.UTC().UnixNano(),
	}
}

func whereClause(filter models.ResultFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if len(filter.BinTypes) > 0 {
		where += ` AND bin_type IN ` + inClause(len(filter.BinTypes))
		for _, bt := range filter.BinTypes {
			args = append(args, bt)
		}
	}
	if !filter.Since.IsZero() {
		where += ` AND ts >= ?`
		args = append(args, filter.Since.UTC().UnixNano())
	}
	if !filter.Until.IsZero() {
		where += ` AND ts < ?`
		args = append(args, filter.Until.UTC().UnixNano())
	}
	return where, args
}
