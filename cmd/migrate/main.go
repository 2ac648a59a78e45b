// migrate imports legacy waste-log and bin-status exports (JSON array or
// one document per line, as written by mongoexport) into the durable store.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"smartwaste/internal/models"
	"smartwaste/internal/repository"
	"smartwaste/internal/repository/postgres"
	"smartwaste/internal/repository/sqlite"
	"smartwaste/internal/service/dashboard"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var logsPath, binsPath, dbPath, databaseURL string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.StringVar(&logsPath, "logs", "", "waste_logs export to import")
	flagSet.StringVar(&binsPath, "bins", "", "bin_status export to import")
	flagSet.StringVar(&dbPath, "db", "data/waste.db", "sqlite database path")
	flagSet.StringVar(&databaseURL, "database-url", "", "postgres URL; overrides --db")
	flagSet.DurationVar(&timeout, "timeout", time.Minute, "overall import timeout")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if logsPath == "" && binsPath == "" {
		flagSet.PrintDefaults()
		return errors.New("nothing to import: pass --logs and/or --bins")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results, status, closeDB, err := open(ctx, dbPath, databaseURL)
	if err != nil {
		return err
	}
	defer closeDB()

	if logsPath != "" {
		logs, skipped, err := readLogs(logsPath)
		if err != nil {
			return err
		}
		if err := results.InsertBatch(ctx, logs); err != nil {
			return fmt.Errorf("failed to insert waste logs: %w", err)
		}
		fmt.Printf("Imported %d waste logs (%d skipped)\n", len(logs), skipped)
	}

	if binsPath != "" {
		docs, err := readDocuments(binsPath)
		if err != nil {
			return err
		}
		imported := 0
		for _, doc := range docs {
			name := doc.TypeName()
			if name == "" {
				fmt.Fprintf(os.Stderr, "Skipping bin status without a type: %v\n", doc)
				continue
			}
			delete(doc, "_id")
			if _, err := status.Upsert(ctx, strings.ToLower(name), doc); err != nil {
				return fmt.Errorf("failed to import bin status %s: %w", name, err)
			}
			imported++
		}
		fmt.Printf("Imported %d bin status documents\n", imported)
	}

	return nil
}

func open(ctx context.Context, dbPath, databaseURL string) (repository.ResultRepository, repository.BinStatusWriter, func(), error) {
	if databaseURL != "" {
		db, err := postgres.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewResultRepository(db), postgres.NewBinStatusRepository(db), db.Close, nil
	}

	db, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return sqlite.NewResultRepository(db), sqlite.NewBinStatusRepository(db), func() { db.Close() }, nil
}

// readDocuments decodes a JSON array or a stream of JSON objects.
func readDocuments(path string) ([]models.BinStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)

	var docs []models.BinStatus
	if bytes.HasPrefix(data, []byte("[")) {
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&docs); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return docs, nil
	}

	decoder := json.NewDecoder(bufio.NewReader(bytes.NewReader(data)))
	decoder.UseNumber()
	for {
		doc := models.BinStatus{}
		if err := decoder.Decode(&doc); err != nil {
			if err == io.EOF {
				return docs, nil
			}
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
}

// readLogs converts exported waste-log documents. Labels are stored as
// exported; dashboard synonym matching handles legacy names such as "dry".
func readLogs(path string) ([]models.ClassificationResult, int, error) {
	docs, err := readDocuments(path)
	if err != nil {
		return nil, 0, err
	}
	results := make([]models.ClassificationResult, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		result, err := convertLog(doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping waste log: %v\n", err)
			skipped++
			continue
		}
		results = append(results, result)
	}
	return results, skipped, nil
}

func convertLog(doc models.BinStatus) (models.ClassificationResult, error) {
	wasteType := strings.ToLower(stringField(doc, "waste_type"))
	binType := strings.ToLower(stringField(doc, "bin_type"))
	if wasteType == "" && binType == "" {
		return models.ClassificationResult{}, errors.New("document has neither waste_type nor bin_type")
	}
	if binType == "" {
		label, _ := models.ParseWasteLabel(wasteType)
		bt, _ := models.BinFor(label)
		binType = string(bt)
	}
	if wasteType == "" {
		wasteType = binType
	}

	ts, err := parseLegacyTime(doc["timestamp"])
	if err != nil {
		return models.ClassificationResult{}, err
	}

	recyclable, ok := doc["recyclable"].(bool)
	if !ok {
		bt, _ := dashboard.Resolve(binType)
		recyclable = bt == models.BinRecycle
	}

	id := stringField(doc, "id")
	if id == "" {
		id = uuid.NewString()
	}
	deviceID := stringField(doc, "device_id")
	if deviceID == "" {
		deviceID = "unknown"
	}

	return models.ClassificationResult{
		ID:         id,
		WasteLabel: models.WasteLabel(wasteType),
		BinType:    models.BinType(binType),
		Recyclable: recyclable,
		Confidence: numberField(doc, "confidence"),
		DeviceID:   deviceID,
		Timestamp:  ts,
	}, nil
}

func stringField(doc models.BinStatus, key string) string {
	if s, ok := doc[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func numberField(doc models.BinStatus, key string) float64 {
	switch v := doc[key].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case float64:
		return v
	}
	return 0
}

var legacyLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999"}

// parseLegacyTime accepts ISO strings (naive ones are UTC), extended JSON
// {"$date": ...} values and unix milliseconds.
func parseLegacyTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		for _, layout := range legacyLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	case json.Number:
		ms, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
		}
		return time.UnixMilli(ms).UTC(), nil
	case map[string]interface{}:
		if date, ok := t["$date"]; ok {
			return parseLegacyTime(date)
		}
		if nested, ok := t["$numberLong"]; ok {
			if s, ok := nested.(string); ok {
				return parseLegacyTime(json.Number(s))
			}
		}
	case nil:
		return time.Time{}, errors.New("missing timestamp")
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %v", v)
}
