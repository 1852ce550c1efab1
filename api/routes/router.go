package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockroomhq/stockroom-backend/api/controllers"
	"github.com/stockroomhq/stockroom-backend/api/middleware"
	"github.com/stockroomhq/stockroom-backend/internal/inventory"
	"github.com/stockroomhq/stockroom-backend/internal/issuance"
	"github.com/stockroomhq/stockroom-backend/internal/items"
	"github.com/stockroomhq/stockroom-backend/internal/reservations"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	pkgredis "github.com/stockroomhq/stockroom-backend/pkg/redis"
)

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        *pkgredis.Client
	Items        items.Service
	Inventory    inventory.Service
	Reservations reservations.Service
	Issuance     issuance.Service
	Metrics      prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if params.Redis != nil {
		r.Use(middleware.Idempotency(params.Redis, logg))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		deps := map[string]controllers.Pinger{"db": params.DB}
		if params.Redis != nil {
			deps["redis"] = params.Redis
		}
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.CreateItem(params.Items, logg))
			r.Get("/", controllers.ListItems(params.Items, logg))
			r.Get("/{id}", controllers.GetItem(params.Items, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/receive", controllers.ReceiveStock(params.Inventory, logg))
			r.Get("/summary/{item_id}", controllers.StockSummary(params.Inventory, logg))
			r.Patch("/lots/{id}/qc-status", controllers.SetLotQCStatus(params.Inventory, logg))
			r.Post("/reserve", controllers.ReserveStock(params.Reservations, logg))
			r.Post("/reservations/{id}/cancel", controllers.CancelReservation(params.Reservations, logg))
			r.Post("/issue", controllers.IssueStock(params.Issuance, logg))
		})
	})

	return r
}
