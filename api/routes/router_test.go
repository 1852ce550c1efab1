package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/api/controllers"
	"github.com/stockroomhq/stockroom-backend/internal/issuance"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return fmt.Errorf("connection refused")
}

type stubItemService struct{}

func (stubItemService) Create(context.Context, string, string, bool) (*models.Item, error) {
	return &models.Item{ID: uuid.New()}, nil
}

func (stubItemService) Get(context.Context, uuid.UUID) (*models.Item, error) {
	return &models.Item{ID: uuid.New()}, nil
}

func (stubItemService) List(context.Context) ([]models.Item, error) {
	return nil, nil
}

type stubInventoryService struct{}

func (stubInventoryService) Receive(context.Context, uuid.UUID, string, decimal.Decimal) (*models.InventoryLot, error) {
	return &models.InventoryLot{ID: uuid.New()}, nil
}

func (stubInventoryService) Summary(context.Context, uuid.UUID) (stock.Summary, error) {
	return stock.Summary{}, nil
}

func (stubInventoryService) SetQCStatus(context.Context, uuid.UUID, enums.QCStatus) (*models.InventoryLot, error) {
	return &models.InventoryLot{ID: uuid.New()}, nil
}

type stubReservationService struct{}

func (stubReservationService) Reserve(context.Context, uuid.UUID, decimal.Decimal) (*models.Reservation, error) {
	return &models.Reservation{ID: uuid.New()}, nil
}

func (stubReservationService) Cancel(context.Context, uuid.UUID) (*models.Reservation, error) {
	return &models.Reservation{ID: uuid.New()}, nil
}

type stubIssuanceService struct{}

func (stubIssuanceService) Issue(context.Context, uuid.UUID) (*issuance.Result, error) {
	return &issuance.Result{}, nil
}

func testRouter(db controllers.Pinger, metrics prometheus.Gatherer) http.Handler {
	return NewRouter(RouterParams{
		Config:       &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:           db,
		Items:        stubItemService{},
		Inventory:    stubInventoryService{},
		Reservations: stubReservationService{},
		Issuance:     stubIssuanceService{},
		Metrics:      metrics,
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(stubPinger{}, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if env := rec.Header().Get("X-Stockroom-Env"); env != "test" {
			t.Fatalf("%s: expected env header, got %q", path, env)
		}
	}
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	router := testRouter(failingPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRoutesAreWired(t *testing.T) {
	router := testRouter(stubPinger{}, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/items"},
		{http.MethodGet, "/api/v1/items/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/inventory/summary/" + uuid.NewString()},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: route not wired (%d)", tt.method, tt.path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := testRouter(stubPinger{}, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}

	withoutMetrics := testRouter(stubPinger{}, nil)
	rec = httptest.NewRecorder()
	withoutMetrics.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a gatherer, got %d", rec.Code)
	}
}
