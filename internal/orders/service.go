package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// ReportCache is bumped after every committed order so cached report payloads
// stop being served stale.
type ReportCache interface {
	Bump(ctx context.Context) error
}

// Service implements the order commit path: validate, snapshot prices, then
// write the order, its lines and the stock deductions in one transaction.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	idempotency *shared.IdempotencyStore
	reportCache ReportCache
}

// NewService builds the order service. idempotency and reportCache may be nil
// in tests.
func NewService(logger *slog.Logger, repo Repository, idempotency *shared.IdempotencyStore, reportCache ReportCache) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		idempotency: idempotency,
		reportCache: reportCache,
	}
}

// Create commits a new order atomically. Any invalid line, unknown product or
// insufficient stock rolls the whole order back, lines and log entries
// included.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (Order, error) {
	if len(input.Lines) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", shared.ErrValidation)
	}
	ids := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID <= 0 {
			return Order{}, fmt.Errorf("%w: invalid product id %d", shared.ErrValidation, line.ProductID)
		}
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: quantity for product %d must be positive", shared.ErrValidation, line.ProductID)
		}
		ids = append(ids, line.ProductID)
	}

	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "orders"); err != nil {
			return Order{}, err
		}
	}

	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		prices, err := tx.GetProductPrices(ctx, ids)
		if err != nil {
			return err
		}
		// A missing product is the caller's mistake, not a lookup miss:
		// the order request referenced something that does not exist.
		for _, line := range input.Lines {
			if _, ok := prices[line.ProductID]; !ok {
				return fmt.Errorf("%w: product %d not found", shared.ErrValidation, line.ProductID)
			}
		}

		orderDate := time.Now().UTC()
		orderID, err := tx.InsertOrder(ctx, input.CustomerName, orderDate)
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("Sale - Order ID: %d", orderID)

		total := decimal.Zero
		lines := make([]OrderLine, 0, len(input.Lines))
		for _, item := range input.Lines {
			if err := tx.DeductStock(ctx, item.ProductID, item.Quantity, reason); err != nil {
				return err
			}
			price := prices[item.ProductID]
			line := OrderLine{
				OrderID:     orderID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				PriceAtSale: price,
				Subtotal:    price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			lines = append(lines, line)
			total = total.Add(line.Subtotal)
		}

		if err := tx.SetOrderTotal(ctx, orderID, total); err != nil {
			return err
		}

		order = Order{
			ID:           orderID,
			OrderDate:    orderDate,
			CustomerName: input.CustomerName,
			Status:       StatusCompleted,
			TotalAmount:  total,
			Lines:        lines,
		}
		return nil
	})
	if err != nil {
		// The key must not block a retry of a request that never committed.
		if input.IdempotencyKey != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, input.IdempotencyKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return Order{}, err
	}

	if s.reportCache != nil {
		if err := s.reportCache.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	s.logger.Info("order committed",
		slog.Int64("order_id", order.ID),
		slog.Int("lines", len(order.Lines)),
		slog.String("total", order.TotalAmount.String()))
	return order, nil
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, filter Filter, page shared.Page) ([]Order, int, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter, page.Normalize())
}
