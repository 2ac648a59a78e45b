// Package file reads bin status documents maintained by an external process
// as a YAML (or JSON) file. The file is re-read on every lookup.
package file

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"smartwaste/internal/models"
)

// BinStatusRepository is a read-only status source backed by a file that
// holds either a list of documents or a mapping of bin type to document.
type BinStatusRepository struct {
	path string
}

// NewBinStatusRepository creates a source reading path.
func NewBinStatusRepository(path string) *BinStatusRepository {
	return &BinStatusRepository{path: path}
}

// FindByTypes returns the document for the first of types that has one.
func (r *BinStatusRepository) FindByTypes(ctx context.Context, types []string) (models.BinStatus, error) {
	docs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		for _, doc := range docs {
			if doc.TypeName() == t {
				return doc, nil
			}
		}
	}
	return nil, nil
}

// List returns every document in the file. A missing file yields none.
func (r *BinStatusRepository) List(_ context.Context) ([]models.BinStatus, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return []models.BinStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bin status file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]models.BinStatus, error) {
	var list []map[string]interface{}
	if err := yaml.Unmarshal(data, &list); err == nil {
		docs := make([]models.BinStatus, 0, len(list))
		for _, m := range list {
			docs = append(docs, models.BinStatus(m))
		}
		return docs, nil
	}

	var byType map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &byType); err != nil {
		return nil, fmt.Errorf("failed to parse bin status file: %w", err)
	}

	keys := make([]string, 0, len(byType))
	for k := range byType {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	docs := make([]models.BinStatus, 0, len(keys))
	for _, k := range keys {
		doc := models.BinStatus(byType[k])
		if doc == nil {
			doc = models.BinStatus{}
		}
		if doc.TypeName() == "" {
			doc["bin_type"] = k
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
