package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/shared"
)

// Handler exposes the reporting REST surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales", h.listSales)
		r.Get("/revenue/summary", h.revenueSummary)
		r.Get("/revenue/comparison", h.compareRevenue)
	})
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	pg := shared.Page{Number: page, Size: size}

	var filter SalesFilter
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid product_id", shared.ErrValidation))
			return
		}
		filter.ProductID = &id
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid category_id", shared.ErrValidation))
			return
		}
		filter.CategoryID = &id
	}
	filter.CustomerContains = q.Get("customer_contains")

	rng, err := rangeFromQuery(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Range = rng

	items, total, err := h.service.ListSales(r.Context(), filter, pg)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewPaginated(items, total, pg.Normalize()))
}

func (h *Handler) revenueSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period := q.Get("period")
	if period == "" {
		period = PeriodDaily
	}
	rng, err := rangeFromQuery(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var categoryID *int64
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid category_id", shared.ErrValidation))
			return
		}
		categoryID = &id
	}

	summary, err := h.service.RevenueSummary(r.Context(), period, rng, categoryID)
	if err != nil {
		h.logger.Error("revenue summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) compareRevenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rng1, err := rangeFromQuery(q.Get("period1_start"), q.Get("period1_end"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rng2, err := rangeFromQuery(q.Get("period2_start"), q.Get("period2_end"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var categoryID *int64
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid category_id", shared.ErrValidation))
			return
		}
		categoryID = &id
	}

	comparison, err := h.service.CompareRevenue(r.Context(), rng1, rng2, categoryID)
	if err != nil {
		h.logger.Error("revenue comparison", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, comparison)
}

func rangeFromQuery(startRaw, endRaw string) (shared.DateRange, error) {
	from, err := shared.ParseDate(startRaw)
	if err != nil {
		return shared.DateRange{}, err
	}
	to, err := shared.ParseDate(endRaw)
	if err != nil {
		return shared.DateRange{}, err
	}
	return shared.DateRange{From: from, To: to}, nil
}
