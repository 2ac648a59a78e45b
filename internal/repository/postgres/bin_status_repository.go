package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"smartwaste/internal/models"
)

// BinStatusRepository stores bin status documents in a JSONB column.
type BinStatusRepository struct {
	db *DB
}

// NewBinStatusRepository creates a new Postgres bin status repository.
func NewBinStatusRepository(db *DB) *BinStatusRepository {
	return &BinStatusRepository{db: db}
}

// FindByTypes returns the document for the first of types that has one.
func (r *BinStatusRepository) FindByTypes(ctx context.Context, types []string) (models.BinStatus, error) {
	if len(types) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool().Query(ctx,
		`SELECT bin_type, document::text FROM bin_status WHERE bin_type = ANY($1)`, types)
	if err != nil {
		return nil, fmt.Errorf("failed to query bin status: %w", err)
	}
	defer rows.Close()

	found := make(map[string]models.BinStatus)
	for rows.Next() {
		var binType, raw string
		if err := rows.Scan(&binType, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan bin status: %w", err)
		}
		doc, err := decodeStatus(binType, raw)
		if err != nil {
			return nil, err
		}
		found[binType] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
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
	rows, err := r.db.Pool().Query(ctx, `SELECT bin_type, document::text FROM bin_status ORDER BY bin_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bin status: %w", err)
	}
	defer rows.Close()

	docs := make([]models.BinStatus, 0)
	for rows.Next() {
		var binType, raw string
		if err := rows.Scan(&binType, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan bin status: %w", err)
		}
		doc, err := decodeStatus(binType, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Upsert merges fields into the stored document using JSONB concatenation.
func (r *BinStatusRepository) Upsert(ctx context.Context, binType string, fields models.BinStatus) (models.BinStatus, error) {
	patch := models.BinStatus{}
	for k, v := range fields {
		patch[k] = v
	}
	patch["bin_type"] = binType

	encoded, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bin status: %w", err)
	}

	var raw string
	err = r.db.Pool().QueryRow(ctx, `
		INSERT INTO bin_status (bin_type, document, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (bin_type) DO UPDATE SET document = bin_status.document || excluded.document, updated_at = now()
		RETURNING document::text
	`, binType, string(encoded)).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bin status: %w", err)
	}
	return decodeStatus(binType, raw)
}

func decodeStatus(binType, raw string) (models.BinStatus, error) {
	doc := models.BinStatus{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode bin status %s: %w", binType, err)
	}
	if doc.TypeName() == "" {
		doc["bin_type"] = binType
	}
	return doc, nil
}
