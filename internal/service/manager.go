package service

import (
	"context"
	"errors"
	"time"

	"smartwaste/internal/dto"
	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/repository"
	"smartwaste/internal/service/dashboard"
	"smartwaste/internal/service/handshake"
	"smartwaste/internal/service/inference"
	"smartwaste/internal/service/pipeline"
	"smartwaste/internal/service/storage"
	"smartwaste/internal/service/store"
	"smartwaste/internal/service/websocket"
)

var (
	// ErrUnknownBin is returned for a bin name outside every synonym set.
	ErrUnknownBin = errors.New("unknown bin type")
	// ErrReadOnly is returned when the bin status source does not accept writes.
	ErrReadOnly = errors.New("bin status source is read-only")
)

// Components are the collaborators a Manager is built from. Status, Hub and
// Buffer are optional.
type Components struct {
	Inferencer  inference.Inferencer
	Store       *store.ResultStore
	Status      repository.BinStatusRepository
	Hub         *websocket.HubService
	Buffer      *storage.BufferService
	DefaultType models.WasteLabel
	Capacity    float64
	TodayTotal  bool

	// StoreTimeout bounds each bin status call; zero means unbounded.
	StoreTimeout time.Duration
}

// Manager owns the handshake state and exposes every operation the HTTP
// layer needs.
type Manager struct {
	coordinator *handshake.CaptureCoordinator
	cache       *handshake.LatestResultCache
	pipeline    *pipeline.ClassificationPipeline
	aggregator  *dashboard.Aggregator
	inferencer  inference.Inferencer
	store       *store.ResultStore
	status      repository.BinStatusRepository
	hub         *websocket.HubService
	buffer      *storage.BufferService
	timeout     time.Duration
	logger      *logger.Logger
}

func NewManager(c Components, logger *logger.Logger) *Manager {
	m := &Manager{
		coordinator: handshake.NewCaptureCoordinator(),
		cache:       handshake.NewLatestResultCache(c.DefaultType),
		inferencer:  c.Inferencer,
		store:       c.Store,
		status:      c.Status,
		hub:         c.Hub,
		buffer:      c.Buffer,
		timeout:     c.StoreTimeout,
		logger:      logger,
	}

	m.pipeline = pipeline.NewClassificationPipeline(c.Inferencer, m.coordinator, m.cache, c.Store, logger)
	if c.Buffer != nil {
		m.pipeline.UseArchiver(c.Buffer)
	}
	if c.Hub != nil {
		m.pipeline.UsePublisher(c.Hub)
	}

	m.aggregator = dashboard.NewAggregator(c.Status, c.Store, c.Capacity, c.TodayTotal, c.StoreTimeout, logger)

	return m
}

// NotifyArrival arms the capture flag and tells dashboard clients.
func (m *Manager) NotifyArrival() {
	if m.coordinator.NotifyArrival() {
		m.logger.Info("Waste detected, capture required")
	}
	if m.hub != nil {
		m.hub.PublishArrival()
	}
}

// ShouldCapture reports the capture flag.
func (m *Manager) ShouldCapture() bool {
	armed := m.coordinator.ShouldCapture()
	if armed {
		m.logger.Info("Camera capture allowed")
	}
	return armed
}

// Classify runs the classification pipeline on one upload.
func (m *Manager) Classify(ctx context.Context, image []byte, deviceID string) (models.ClassificationResult, error) {
	return m.pipeline.Classify(ctx, image, deviceID)
}

// ConsumeWasteType returns the latest label and resets it to the default.
func (m *Manager) ConsumeWasteType() models.WasteLabel {
	return m.cache.Consume()
}

// DashboardData computes the per-bin statistics.
func (m *Manager) DashboardData(ctx context.Context) dto.DashboardData {
	return m.aggregator.Build(ctx)
}

// WasteLogs lists stored results matching filter.
func (m *Manager) WasteLogs(ctx context.Context, filter models.ResultFilter) []models.ClassificationResult {
	return m.store.List(ctx, filter)
}

// BinStatuses lists every status document.
func (m *Manager) BinStatuses(ctx context.Context) ([]models.BinStatus, error) {
	if m.status == nil {
		return []models.BinStatus{}, nil
	}
	ctx, cancel := m.statusContext(ctx)
	defer cancel()
	docs, err := m.status.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.BinStatus{}
	}
	return docs, nil
}

// BinStatus returns the status document for name, matched by synonym.
// A nil document means none is stored.
func (m *Manager) BinStatus(ctx context.Context, name string) (models.BinStatus, error) {
	bt, ok := dashboard.Resolve(name)
	if !ok {
		return nil, ErrUnknownBin
	}
	if m.status == nil {
		return nil, nil
	}
	ctx, cancel := m.statusContext(ctx)
	defer cancel()
	return m.status.FindByTypes(ctx, dashboard.SynonymsFor(bt))
}

// UpdateBinStatus merges fields into the canonical document for name.
func (m *Manager) UpdateBinStatus(ctx context.Context, name string, fields models.BinStatus) (models.BinStatus, error) {
	bt, ok := dashboard.Resolve(name)
	if !ok {
		return nil, ErrUnknownBin
	}
	writer, ok := m.status.(repository.BinStatusWriter)
	if !ok {
		return nil, ErrReadOnly
	}
	for _, key := range models.BinStatusTypeKeys {
		delete(fields, key)
	}
	ctx, cancel := m.statusContext(ctx)
	defer cancel()
	doc, err := writer.Upsert(ctx, string(bt), fields)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Bin status for %s updated", bt)
	return doc, nil
}

// Health reports backend state for monitoring.
func (m *Manager) Health() dto.Health {
	return dto.Health{
		Status:       "ok",
		DBConnected:  m.store.Durable(),
		DummyMode:    !m.inferencer.Available(),
		StoreBackend: m.store.Backend(),
	}
}

func (m *Manager) statusContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

func (m *Manager) GetBufferService() *storage.BufferService {
	return m.buffer
}
