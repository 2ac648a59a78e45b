package dto

import (
	"time"

	"smartwaste/internal/models"
)

// BinData is one bin entry of the dashboard payload.
type BinData struct {
	ID                  int            `json:"id"`
	Type                string         `json:"type"` // frontend key, "recyclable" for the recycle bin
	BinType             models.BinType `json:"bin_type"`
	Label               string         `json:"label"`
	FillLevel           float64        `json:"fill_level"`
	TotalCapacity       float64        `json:"total_capacity"`
	TodayCollection     int            `json:"today_collection"`
	YesterdayCollection int            `json:"yesterday_collection"`
	TotalCollection     int            `json:"total_collection"`
	LastUpdated         *time.Time     `json:"last_updated"`
}

// DashboardData is the /dashboard_data response.
type DashboardData struct {
	Total     int       `json:"total"`
	Wet       int       `json:"wet"`
	Reject    int       `json:"reject"`
	Recycle   int       `json:"recycle"`
	Hazardous int       `json:"hazardous"`
	Bins      []BinData `json:"bins"`
}
