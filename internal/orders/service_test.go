package orders

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
)

type memoryOrderRepo struct {
	mu         sync.Mutex
	prices     map[int64]decimal.Decimal
	quantities map[int64]int
	orders     map[int64]Order
	lines      map[int64][]OrderLine
	deductions []string
	nextOrder  int64
	nextLine   int64
}

type memoryOrderTx struct {
	repo *memoryOrderRepo
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		prices:     make(map[int64]decimal.Decimal),
		quantities: make(map[int64]int),
		orders:     make(map[int64]Order),
		lines:      make(map[int64][]OrderLine),
	}
}

// WithTx snapshots state up front and restores it when fn fails, mirroring a
// database rollback.
func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	quantities := make(map[int64]int, len(r.quantities))
	for k, v := range r.quantities {
		quantities[k] = v
	}
	orders := make(map[int64]Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	lines := make(map[int64][]OrderLine, len(r.lines))
	for k, v := range r.lines {
		lines[k] = append([]OrderLine(nil), v...)
	}
	deductions := append([]string(nil), r.deductions...)
	nextOrder, nextLine := r.nextOrder, r.nextLine

	if err := fn(ctx, &memoryOrderTx{repo: r}); err != nil {
		r.quantities = quantities
		r.orders = orders
		r.lines = lines
		r.deductions = deductions
		r.nextOrder, r.nextLine = nextOrder, nextLine
		return err
	}
	return nil
}

func (r *memoryOrderRepo) Get(ctx context.Context, id int64) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	order.Lines = append([]OrderLine(nil), r.lines[id]...)
	return order, nil
}

func (r *memoryOrderRepo) List(ctx context.Context, filter Filter, page shared.Page) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, order := range r.orders {
		out = append(out, order)
	}
	return out, len(out), nil
}

func (t *memoryOrderTx) GetProductPrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	prices := make(map[int64]decimal.Decimal)
	for _, id := range ids {
		if price, ok := t.repo.prices[id]; ok {
			prices[id] = price
		}
	}
	return prices, nil
}

func (t *memoryOrderTx) InsertOrder(ctx context.Context, customerName *string, orderDate time.Time) (int64, error) {
	t.repo.nextOrder++
	id := t.repo.nextOrder
	t.repo.orders[id] = Order{ID: id, OrderDate: orderDate, CustomerName: customerName, Status: StatusCompleted}
	return id, nil
}

func (t *memoryOrderTx) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	order := t.repo.orders[orderID]
	order.TotalAmount = total
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryOrderTx) InsertLine(ctx context.Context, line OrderLine) (int64, error) {
	t.repo.nextLine++
	line.ID = t.repo.nextLine
	t.repo.lines[line.OrderID] = append(t.repo.lines[line.OrderID], line)
	return line.ID, nil
}

func (t *memoryOrderTx) DeductStock(ctx context.Context, productID int64, quantity int, reason string) error {
	current, ok := t.repo.quantities[productID]
	if !ok || current < quantity {
		return stock.ErrInsufficientStock
	}
	t.repo.quantities[productID] = current - quantity
	t.repo.deductions = append(t.repo.deductions, reason)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateOrderComputesExactTotal(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.prices[1] = price("19.99")
	repo.prices[2] = price("0.10")
	repo.quantities[1] = 10
	repo.quantities[2] = 10
	svc := NewService(testLogger(), repo, nil, nil)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 3},
		},
	})
	require.NoError(t, err)
	// 3*19.99 + 3*0.10 must be exactly 60.27, no float drift.
	require.True(t, order.TotalAmount.Equal(price("60.27")), "got %s", order.TotalAmount)
	require.Len(t, order.Lines, 2)
	require.True(t, order.Lines[0].Subtotal.Equal(price("59.97")))
	require.True(t, order.Lines[1].Subtotal.Equal(price("0.30")))
	require.Equal(t, StatusCompleted, order.Status)

	require.Equal(t, 7, repo.quantities[1])
	require.Equal(t, 7, repo.quantities[2])
}

func TestCreateOrderDeductionReasonCarriesOrderID(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.prices[1] = price("5.00")
	repo.quantities[1] = 5
	svc := NewService(testLogger(), repo, nil, nil)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, repo.deductions, 1)
	require.Contains(t, repo.deductions[0], "Sale - Order ID:")
	require.Contains(t, repo.deductions[0], "1")
	require.Equal(t, order.ID, int64(1))
}

func TestCreateOrderUnknownProductRollsBackEverything(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.prices[1] = price("5.00")
	repo.quantities[1] = 5
	svc := NewService(testLogger(), repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 99, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Equal(t, 5, repo.quantities[1])
	require.Empty(t, repo.orders)
	require.Empty(t, repo.deductions)
}

func TestCreateOrderInsufficientStockRollsBackEarlierLines(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.prices[1] = price("5.00")
	repo.prices[2] = price("7.50")
	repo.quantities[1] = 10
	repo.quantities[2] = 1
	svc := NewService(testLogger(), repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{
			{ProductID: 1, Quantity: 4},
			{ProductID: 2, Quantity: 3},
		},
	})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Equal(t, 10, repo.quantities[1])
	require.Equal(t, 1, repo.quantities[2])
	require.Empty(t, repo.orders)
}

func TestCreateOrderValidatesInput(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := NewService(testLogger(), repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateOrderInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{{ProductID: 1, Quantity: 0}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{{ProductID: 1, Quantity: -2}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateOrderPriceSnapshotIsStable(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.prices[1] = price("10.00")
	repo.quantities[1] = 10
	svc := NewService(testLogger(), repo, nil, nil)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		Lines: []LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	// A later price change must not leak into the committed order.
	repo.prices[1] = price("99.00")

	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, stored.Lines[0].PriceAtSale.Equal(price("10.00")))
	require.True(t, stored.TotalAmount.Equal(price("20.00")))
}

func TestCreateOrderConcurrentNoOversell(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.prices[1] = price("1.00")
	repo.quantities[1] = 10
	svc := NewService(testLogger(), repo, nil, nil)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateOrderInput{
				Lines: []LineInput{{ProductID: 1, Quantity: 1}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var committed, rejected int
	for err := range results {
		if err == nil {
			committed++
		} else {
			require.ErrorIs(t, err, stock.ErrInsufficientStock)
			rejected++
		}
	}
	require.Equal(t, 10, committed)
	require.Equal(t, 10, rejected)
	require.Equal(t, 0, repo.quantities[1])
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc := NewService(testLogger(), newMemoryOrderRepo(), nil, nil)

	from, _ := shared.ParseDate("2024-02-01")
	to, _ := shared.ParseDate("2024-01-01")
	_, _, err := svc.List(context.Background(), Filter{Range: shared.DateRange{From: from, To: to}}, shared.Page{})
	require.ErrorIs(t, err, shared.ErrValidation)
}
