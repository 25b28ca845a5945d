package orders

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/shared"
)

// Handler exposes the order REST surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the order handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes attaches order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
	})
}

type lineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type createRequest struct {
	CustomerName *string       `json:"customer_name" validate:"omitempty,max=255"`
	Items        []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	var key string
	if raw := r.Header.Get("Idempotency-Key"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: Idempotency-Key must be a UUID", shared.ErrValidation))
			return
		}
		key = parsed.String()
	}

	input := CreateOrderInput{
		CustomerName:   req.CustomerName,
		IdempotencyKey: key,
	}
	for _, item := range req.Items {
		input.Lines = append(input.Lines, LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid id", shared.ErrValidation))
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	pg := shared.Page{Number: page, Size: size}

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
	filter := Filter{
		CustomerContains: q.Get("customer_contains"),
		StatusContains:   q.Get("status"),
		Range:            shared.DateRange{From: from, To: to},
	}

	orders, total, err := h.service.List(r.Context(), filter, pg)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewPaginated(orders, total, pg.Normalize()))
}
