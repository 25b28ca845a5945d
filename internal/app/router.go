package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/orders"
	"github.com/shopledger/shopledger/internal/reports"
	"github.com/shopledger/shopledger/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	CatalogHandler *catalog.Handler
	StockHandler   *stock.Handler
	OrdersHandler  *orders.Handler
	ReportsHandler *reports.Handler
	Pool           *pgxpool.Pool
	Metrics        *observability.Metrics
	Tasks          TaskClient
}

// NewRouter constructs the chi.Router with ShopLedger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		body := `{"status":"ok"}`
		if params.Pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Pool.Ping(ctx); err != nil {
				params.Logger.Error("healthz database ping", slog.Any("error", err))
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded","database":"unreachable"}`
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r)
	}
	if params.StockHandler != nil {
		params.StockHandler.MountRoutes(r)
	}
	if params.OrdersHandler != nil {
		params.OrdersHandler.MountRoutes(r)
	}
	if params.ReportsHandler != nil {
		params.ReportsHandler.MountRoutes(r)
	}
	if params.Tasks != nil {
		mountAdminRoutes(r, params.Logger, params.Tasks)
	}

	return r
}
