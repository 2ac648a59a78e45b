package dashboard

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"smartwaste/internal/models"
)

// Accepted document keys per logical field, tried in order.
var (
	todayCountKeys     = []string{"todayCount", "today_count", "today_collection", "todayCollection", "today"}
	yesterdayCountKeys = []string{"yesterdayCount", "yesterday_count", "yesterday_collection", "yesterdayCollection", "yesterday"}
	totalCountKeys     = []string{"totalCount", "total_count", "total_collection", "totalCollection", "total", "count"}
	fillLevelKeys      = []string{"fillLevel", "fill_level", "fill", "level"}
	capacityKeys       = []string{"capacity", "total_capacity", "totalCapacity", "max_capacity"}
	lastUpdatedKeys    = []string{"lastUpdated", "last_updated", "updated_at", "updatedAt", "timestamp"}
)

// lookupNumber returns the first key present with a numeric value.
func lookupNumber(doc models.BinStatus, keys []string) (float64, bool) {
	for _, key := range keys {
		v, ok := doc[key]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func lookupCount(doc models.BinStatus, keys []string) int {
	f, ok := lookupNumber(doc, keys)
	if !ok || f < 0 {
		return 0
	}
	return int(math.Round(f))
}

// lookupTime returns the first key present holding a time or timestamp
// string.
func lookupTime(doc models.BinStatus, keys []string) *time.Time {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case time.Time:
			t := v.UTC()
			return &t
		case string:
			if t, ok := parseTime(v); ok {
				return &t
			}
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
