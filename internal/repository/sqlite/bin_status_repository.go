package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"smartwaste/internal/models"
)

// BinStatusRepository stores bin status documents as JSON text.
type BinStatusRepository struct {
	db *DB
}

// NewBinStatusRepository creates a new SQLite bin status repository.
func NewBinStatusRepository(db *DB) *BinStatusRepository {
	return &BinStatusRepository{db: db}
}

// FindByTypes returns the document for the first of types that has one.
func (r *BinStatusRepository) FindByTypes(ctx context.Context, types []string) (models.BinStatus, error) {
	if len(types) == 0 {
		return nil, nil
	}

	r.db.RLock()
	defer r.db.RUnlock()

	args := make([]interface{}, len(types))
	for i, t := range types {
		args[i] = t
	}

	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT bin_type, document FROM bin_status WHERE bin_type IN `+inClause(len(types)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bin status: %w", err)
	}
	defer rows.Close()

	found := make(map[string]models.BinStatus)
	for rows.Next() {
		binType, doc, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		found[binType] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bin status: %w", err)
	}

	for _, t := range types {
		if doc, ok := found[t]; ok {
			return doc, nil
		}
	}
	return nil, nil
}

// List returns all status documents ordered by bin type.
func (r *BinStatusRepository) List(ctx context.Context) ([]models.BinStatus, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT bin_type, document FROM bin_status ORDER BY bin_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bin status: %w", err)
	}
	defer rows.Close()

	docs := make([]models.BinStatus, 0)
	for rows.Next() {
		_, doc, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Upsert merges fields into the stored document for binType.
func (r *BinStatusRepository) Upsert(ctx context.Context, binType string, fields models.BinStatus) (models.BinStatus, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc := models.BinStatus{}
	var raw string
	err = tx.QueryRowContext(ctx, `SELECT document FROM bin_status WHERE bin_type = ?`, binType).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to read bin status: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode bin status %s: %w", binType, err)
		}
	}

	for k, v := range fields {
		doc[k] = v
	}
	doc["bin_type"] = binType

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bin status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bin_status (bin_type, document, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(bin_type) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP
	`, binType, string(encoded)); err != nil {
		return nil, fmt.Errorf("failed to upsert bin status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bin status: %w", err)
	}

	// Round-trip so callers see the same value types a later read returns.
	stored := models.BinStatus{}
	if err := json.Unmarshal(encoded, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode bin status: %w", err)
	}
	return stored, nil
}

func scanStatus(rows *sql.Rows) (string, models.BinStatus, error) {
	var binType, raw string
	if err := rows.Scan(&binType, &raw); err != nil {
		return "", nil, fmt.Errorf("failed to scan bin status: %w", err)
	}
	doc := models.BinStatus{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", nil, fmt.Errorf("failed to decode bin status %s: %w", binType, err)
	}
	if doc.TypeName() == "" {
		doc["bin_type"] = binType
	}
	return binType, doc, nil
}
