package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"smartwaste/internal/config"
	"smartwaste/internal/dto"
	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/repository"
	"smartwaste/internal/service"
	"smartwaste/internal/service/inference"
	"smartwaste/internal/service/store"

	"github.com/gin-gonic/gin"
)

type fakeInferencer struct {
	mu         sync.Mutex
	detections []inference.Detection
	err        error
}

func (f *fakeInferencer) Predict([]byte) ([]inference.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detections, f.err
}

func (f *fakeInferencer) Available() bool { return true }

func (f *fakeInferencer) set(label string, confidence float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections = []inference.Detection{{Label: label, Confidence: confidence}}
	f.err = err
}

// writableStatus is an in-memory status source that accepts updates.
type writableStatus struct {
	mu   sync.Mutex
	docs map[string]models.BinStatus
}

func (w *writableStatus) FindByTypes(_ context.Context, types []string) (models.BinStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range types {
		if doc, ok := w.docs[t]; ok {
			return doc, nil
		}
	}
	return nil, nil
}

func (w *writableStatus) List(context.Context) ([]models.BinStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var docs []models.BinStatus
	for _, bt := range models.BinTypes {
		if doc, ok := w.docs[string(bt)]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (w *writableStatus) Upsert(_ context.Context, binType string, fields models.BinStatus) (models.BinStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[binType]
	if !ok {
		doc = models.BinStatus{}
		w.docs[binType] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc["bin_type"] = binType
	return doc, nil
}

type readOnlyStatus struct{}

func (readOnlyStatus) FindByTypes(context.Context, []string) (models.BinStatus, error) {
	return nil, nil
}

func (readOnlyStatus) List(context.Context) ([]models.BinStatus, error) { return nil, nil }

type testServer struct {
	engine     *gin.Engine
	inferencer *fakeInferencer
}

func newTestServer(t *testing.T, status repository.BinStatusRepository, log *logger.Logger) *testServer {
	t.Helper()
	if log == nil {
		log = logger.Discard()
	}
	inf := &fakeInferencer{}
	inf.set("recycle", 0.9, nil)

	manager := service.NewManager(service.Components{
		Inferencer:  inf,
		Store:       store.New(nil, "", 0, log),
		Status:      status,
		DefaultType: models.LabelReject,
		Capacity:    100,
		TodayTotal:  true,
	}, log)

	cfg := &config.Config{DeviceID: "BIN_01", CORSOrigin: "*"}
	return &testServer{engine: SetupRoutes(manager, cfg, log), inferencer: inf}
}

func (s *testServer) do(method, path string, body []byte, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Invalid JSON %q: %v", w.Body.String(), err)
	}
}

var upload = []byte("jpeg-bytes")

func TestDeviceHandshake(t *testing.T) {
	s := newTestServer(t, nil, nil)

	if w := s.do(http.MethodGet, "/should_capture", nil); w.Body.String() != "NO" {
		t.Errorf("Expected NO before arrival, got %q", w.Body.String())
	}

	w := s.do(http.MethodPost, "/waste_detected", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
		t.Errorf("Unexpected arrival response %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/should_capture", nil); w.Body.String() != "YES" {
		t.Errorf("Expected YES after arrival, got %q", w.Body.String())
	}

	w = s.do(http.MethodPost, "/predict_waste", upload)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp dto.ClassifyResponse
	decode(t, w, &resp)
	if resp.Status != "ok" || resp.WasteType != models.LabelRecycle || resp.Confidence != 0.9 || resp.ID == "" {
		t.Errorf("Unexpected classify response %+v", resp)
	}

	if w := s.do(http.MethodGet, "/should_capture", nil); w.Body.String() != "NO" {
		t.Errorf("Expected NO after classification, got %q", w.Body.String())
	}
	if w := s.do(http.MethodGet, "/get_waste_type", nil); w.Body.String() != "recycle" {
		t.Errorf("Expected recycle, got %q", w.Body.String())
	}
	if w := s.do(http.MethodGet, "/get_waste_type", nil); w.Body.String() != "reject" {
		t.Errorf("Expected default after consume, got %q", w.Body.String())
	}
}

func TestPredictWaste_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
		reason string
	}{
		{"empty body", nil, nil, http.StatusBadRequest, "no image"},
		{"undecodable", upload, inference.ErrUndecodable, http.StatusBadRequest, "invalid image"},
		{"internal", upload, errors.New("model exploded"), http.StatusOK, "internal error"},
	}

	for _, tt := range tests {
		s := newTestServer(t, nil, nil)
		s.inferencer.set("wet", 0.8, tt.err)
		s.do(http.MethodPost, "/waste_detected", nil)

		w := s.do(http.MethodPost, "/predict_waste", tt.body)
		if w.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.status, w.Code)
		}
		var resp dto.ErrorResponse
		decode(t, w, &resp)
		if resp.Error != tt.reason {
			t.Errorf("%s: expected error %q, got %q", tt.name, tt.reason, resp.Error)
		}
		if w := s.do(http.MethodGet, "/should_capture", nil); w.Body.String() != "YES" {
			t.Errorf("%s: capture flag must stay armed", tt.name)
		}
		if w := s.do(http.MethodGet, "/get_waste_type", nil); w.Body.String() != "reject" {
			t.Errorf("%s: latest label must be untouched, got %q", tt.name, w.Body.String())
		}
	}
}

func TestDashboardData(t *testing.T) {
	s := newTestServer(t, nil, nil)

	var empty dto.DashboardData
	decode(t, s.do(http.MethodGet, "/dashboard_data", nil), &empty)
	if empty.Total != 0 || len(empty.Bins) != 4 {
		t.Errorf("Expected empty dashboard with 4 bins, got %+v", empty)
	}

	for _, label := range []string{"wet", "wet", "recycle"} {
		s.inferencer.set(label, 0.8, nil)
		s.do(http.MethodPost, "/predict_waste", upload)
	}

	var data dto.DashboardData
	decode(t, s.do(http.MethodGet, "/dashboard_data", nil), &data)
	if data.Total != 3 || data.Wet != 2 || data.Recycle != 1 {
		t.Errorf("Expected total=3 wet=2 recycle=1, got %+v", data)
	}
	if data.Bins[0].TodayCollection != 2 || data.Bins[0].LastUpdated == nil {
		t.Errorf("Unexpected wet bin %+v", data.Bins[0])
	}
}

func TestWasteLogs(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.inferencer.set("wet", 0.7, nil)
	s.do(http.MethodPost, "/predict_waste", upload, "X-Device-ID", "BIN_09")
	s.inferencer.set("recycle", 0.6, nil)
	s.do(http.MethodPost, "/predict_waste?device_id=BIN_02", upload)

	var all []models.ClassificationResult
	decode(t, s.do(http.MethodGet, "/waste_logs", nil), &all)
	if len(all) != 2 {
		t.Fatalf("Expected 2 logs, got %d", len(all))
	}
	if all[0].DeviceID != "BIN_09" || all[1].DeviceID != "BIN_02" {
		t.Errorf("Unexpected device ids %s, %s", all[0].DeviceID, all[1].DeviceID)
	}
	if all[0].Timestamp.After(all[1].Timestamp) {
		t.Error("Logs must be in timestamp order")
	}

	var recyclable []models.ClassificationResult
	decode(t, s.do(http.MethodGet, "/waste_logs?bin_type=recyclable", nil), &recyclable)
	if len(recyclable) != 1 || recyclable[0].BinType != models.BinRecycle || !recyclable[0].Recyclable {
		t.Errorf("Expected one recycle log, got %+v", recyclable)
	}

	var latest []models.ClassificationResult
	decode(t, s.do(http.MethodGet, "/waste_logs?limit=1", nil), &latest)
	if len(latest) != 1 || latest[0].WasteLabel != models.LabelRecycle {
		t.Errorf("Expected the most recent log, got %+v", latest)
	}

	for _, query := range []string{"bin_type=plutonium", "limit=0", "start=yesterday", "end=2025-13-01"} {
		if w := s.do(http.MethodGet, "/waste_logs?"+query, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, w.Code)
		}
	}
}

func TestBins_Writable(t *testing.T) {
	s := newTestServer(t, &writableStatus{docs: map[string]models.BinStatus{}}, nil)

	if w := s.do(http.MethodGet, "/bins/dry", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before update, got %d", w.Code)
	}

	w := s.do(http.MethodPatch, "/bins/dry", []byte(`{"fill_level": 40, "bin_type": "ignored"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var doc map[string]interface{}
	decode(t, w, &doc)
	if doc["bin_type"] != "reject" || doc["fill_level"] != 40.0 {
		t.Errorf("Unexpected stored document %v", doc)
	}

	if w := s.do(http.MethodGet, "/bins/reject", nil); w.Code != http.StatusOK {
		t.Errorf("Expected stored document, got %d", w.Code)
	}

	var list []map[string]interface{}
	decode(t, s.do(http.MethodGet, "/bins", nil), &list)
	if len(list) != 1 {
		t.Errorf("Expected one document, got %v", list)
	}

	var data dto.DashboardData
	decode(t, s.do(http.MethodGet, "/dashboard_data", nil), &data)
	if data.Bins[1].FillLevel != 40 {
		t.Errorf("Expected reject fill level 40, got %v", data.Bins[1].FillLevel)
	}
}

func TestBins_Errors(t *testing.T) {
	s := newTestServer(t, readOnlyStatus{}, nil)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPatch, "/bins/wet", `{"fill_level": 10}`, http.StatusMethodNotAllowed},
		{http.MethodPatch, "/bins/wet", `not json`, http.StatusBadRequest},
		{http.MethodPatch, "/bins/plutonium", `{"fill_level": 10}`, http.StatusBadRequest},
		{http.MethodGet, "/bins/plutonium", "", http.StatusBadRequest},
		{http.MethodGet, "/bins", "", http.StatusOK},
	}

	for _, tt := range tests {
		if w := s.do(tt.method, tt.path, []byte(tt.body)); w.Code != tt.status {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.status, w.Code)
		}
	}
}

func TestHealthAndHome(t *testing.T) {
	s := newTestServer(t, nil, nil)

	if w := s.do(http.MethodGet, "/", nil); w.Body.String() != "Smart Waste Backend Running" {
		t.Errorf("Unexpected banner %q", w.Body.String())
	}

	var health dto.Health
	decode(t, s.do(http.MethodGet, "/health", nil), &health)
	if health.Status != "ok" || health.DBConnected || health.DummyMode || health.StoreBackend != "memory" {
		t.Errorf("Unexpected health %+v", health)
	}
}

func TestLogs(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.NewLogger(dir)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	s := newTestServer(t, nil, log)
	s.do(http.MethodPost, "/waste_detected", nil)

	w := s.do(http.MethodGet, "/logs/info", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "capture required") {
		t.Errorf("Expected info log content, got %d %q", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodGet, "/logs/debug", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown level, got %d", w.Code)
	}

	if w := s.do(http.MethodPost, "/logs/warning/clear", nil); w.Code != http.StatusOK {
		t.Errorf("Expected clear to succeed, got %d", w.Code)
	}
	info, err := os.Stat(filepath.Join(dir, "warning.log"))
	if err != nil || info.Size() != 0 {
		t.Errorf("Expected empty warning.log, got %v %v", info, err)
	}
}

func TestEventsDisabledWithoutHub(t *testing.T) {
	s := newTestServer(t, nil, nil)

	if w := s.do(http.MethodGet, "/ws", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without hub, got %d", w.Code)
	}
}
