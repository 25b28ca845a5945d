package stock

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/shared"
)

// Handler exposes the inventory REST surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes attaches inventory routes. Logs are mounted before the
// product-id route so "logs" never parses as an id.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.listRecords)
		r.Get("/logs", h.listLog)
		r.Get("/{product_id}", h.getRecord)
		r.Put("/{product_id}", h.adjust)
		r.Patch("/{product_id}", h.adjust)
	})
}

type adjustmentRequest struct {
	QuantityChange    *int   `json:"quantity_change"`
	AbsoluteQuantity  *int   `json:"absolute_quantity"`
	Reason            string `json:"reason" validate:"omitempty,max=255"`
	LowStockThreshold *int   `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	var filter RecordFilter

	q := r.URL.Query()
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
	if raw := q.Get("low_stock"); raw != "" {
		low, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid low_stock", shared.ErrValidation))
			return
		}
		filter.LowStock = &low
	}

	records, total, err := h.service.ListRecords(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list stock records", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewPaginated(records, total, page.Normalize()))
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	record, err := h.service.GetRecord(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	record, err := h.service.Adjust(r.Context(), AdjustmentInput{
		ProductID:         productID,
		QuantityChange:    req.QuantityChange,
		AbsoluteQuantity:  req.AbsoluteQuantity,
		Reason:            req.Reason,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) listLog(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	q := r.URL.Query()

	var filter LogFilter
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid product_id", shared.ErrValidation))
			return
		}
		filter.ProductID = &id
	}
	from, err := shared.ParseDate(q.Get("start_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := shared.ParseDate(q.Get("end_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Range = shared.DateRange{From: from, To: to}
	filter.ReasonContains = q.Get("reason_contains")

	entries, total, err := h.service.ListLog(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list stock log", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewPaginated(entries, total, page.Normalize()))
}

func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return id, nil
}

func pageFromQuery(r *http.Request) shared.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return shared.Page{Number: page, Size: size}
}
