package dto

import "smartwaste/internal/models"

// ClassifyResponse is the /predict_waste success body.
type ClassifyResponse struct {
	Status     string            `json:"status"`
	ID         string            `json:"id"`
	WasteType  models.WasteLabel `json:"waste_type"`
	Confidence float64           `json:"confidence"`
}

// Health is the /health body.
type Health struct {
	Status       string `json:"status"`
	DBConnected  bool   `json:"db_connected"`
	DummyMode    bool   `json:"dummy_mode"`
	StoreBackend string `json:"store_backend"`
}

// ErrorResponse carries a short machine-readable reason.
type ErrorResponse struct {
	Error string `json:"error"`
}
