package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
)

type memoryReportRepo struct {
	sales   []SaleItem
	buckets []RevenueBucket
	totals  map[string]decimal.Decimal
}

func (r *memoryReportRepo) ListSales(ctx context.Context, filter SalesFilter, page shared.Page) ([]SaleItem, int, error) {
	return r.sales, len(r.sales), nil
}

func (r *memoryReportRepo) RevenueByPeriod(ctx context.Context, period string, rng shared.DateRange, categoryID *int64) ([]RevenueBucket, error) {
	if _, err := truncUnit(period); err != nil {
		return nil, err
	}
	return append([]RevenueBucket(nil), r.buckets...), nil
}

func (r *memoryReportRepo) RevenueTotal(ctx context.Context, rng shared.DateRange, categoryID *int64) (decimal.Decimal, error) {
	key := rng.From.Format("2006-01-02")
	if total, ok := r.totals[key]; ok {
		return total, nil
	}
	return decimal.Zero, nil
}

func reportLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRevenueSummaryMonthlyPeriodEnds(t *testing.T) {
	repo := &memoryReportRepo{
		buckets: []RevenueBucket{
			{PeriodStart: day("2024-01-01"), TotalRevenue: decimal.RequireFromString("150.00")},
			{PeriodStart: day("2024-02-01"), TotalRevenue: decimal.RequireFromString("49.99")},
		},
	}
	svc := NewService(reportLogger(), repo, nil)

	summary, err := svc.RevenueSummary(context.Background(), PeriodMonthly, shared.DateRange{}, nil)
	require.NoError(t, err)
	require.Equal(t, PeriodMonthly, summary.Period)
	require.Len(t, summary.Buckets, 2)

	require.Equal(t, day("2024-01-31"), summary.Buckets[0].PeriodEnd)
	require.Equal(t, day("2024-02-29"), summary.Buckets[1].PeriodEnd)
	require.True(t, summary.TotalRevenue.Equal(decimal.RequireFromString("199.99")))
}

func TestRevenueSummaryRejectsUnknownPeriod(t *testing.T) {
	svc := NewService(reportLogger(), &memoryReportRepo{}, nil)

	_, err := svc.RevenueSummary(context.Background(), "hourly", shared.DateRange{}, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRevenueSummaryRejectsInvertedRange(t *testing.T) {
	svc := NewService(reportLogger(), &memoryReportRepo{}, nil)

	rng := shared.DateRange{From: day("2024-03-01"), To: day("2024-02-01")}
	_, err := svc.RevenueSummary(context.Background(), PeriodDaily, rng, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompareRevenue(t *testing.T) {
	repo := &memoryReportRepo{totals: map[string]decimal.Decimal{
		"2024-01-01": decimal.RequireFromString("200.00"),
		"2024-02-01": decimal.RequireFromString("250.00"),
	}}
	svc := NewService(reportLogger(), repo, nil)

	cmp, err := svc.CompareRevenue(context.Background(),
		shared.DateRange{From: day("2024-01-01"), To: day("2024-01-31")},
		shared.DateRange{From: day("2024-02-01"), To: day("2024-02-29")}, nil)
	require.NoError(t, err)

	require.True(t, cmp.Difference.Equal(decimal.RequireFromString("50.00")))
	require.False(t, cmp.PercentChange.Unbounded)
	require.True(t, cmp.PercentChange.Value.Equal(decimal.RequireFromString("25")))
}

func TestCompareRevenueUnboundedWhenBaselineZero(t *testing.T) {
	repo := &memoryReportRepo{totals: map[string]decimal.Decimal{
		"2024-02-01": decimal.RequireFromString("100.00"),
	}}
	svc := NewService(reportLogger(), repo, nil)

	cmp, err := svc.CompareRevenue(context.Background(),
		shared.DateRange{From: day("2024-01-01"), To: day("2024-01-31")},
		shared.DateRange{From: day("2024-02-01"), To: day("2024-02-29")}, nil)
	require.NoError(t, err)

	require.True(t, cmp.PercentChange.Unbounded)
	raw, err := cmp.PercentChange.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"unbounded"`, string(raw))
}

func TestCompareRevenueZeroToZero(t *testing.T) {
	repo := &memoryReportRepo{totals: map[string]decimal.Decimal{}}
	svc := NewService(reportLogger(), repo, nil)

	cmp, err := svc.CompareRevenue(context.Background(),
		shared.DateRange{From: day("2024-01-01"), To: day("2024-01-31")},
		shared.DateRange{From: day("2024-02-01"), To: day("2024-02-29")}, nil)
	require.NoError(t, err)

	require.False(t, cmp.PercentChange.Unbounded)
	require.True(t, cmp.PercentChange.Value.IsZero())
	require.True(t, cmp.Difference.IsZero())
}

func TestCompareRevenueRequiresBoundedRanges(t *testing.T) {
	svc := NewService(reportLogger(), &memoryReportRepo{}, nil)

	_, err := svc.CompareRevenue(context.Background(),
		shared.DateRange{From: day("2024-01-01")},
		shared.DateRange{From: day("2024-02-01"), To: day("2024-02-29")}, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPeriodEnd(t *testing.T) {
	require.Equal(t, day("2024-03-05"), periodEnd(day("2024-03-05"), PeriodDaily))
	require.Equal(t, day("2024-03-10"), periodEnd(day("2024-03-04"), PeriodWeekly))
	require.Equal(t, day("2024-02-29"), periodEnd(day("2024-02-01"), PeriodMonthly))
	require.Equal(t, day("2023-02-28"), periodEnd(day("2023-02-01"), PeriodMonthly))
	require.Equal(t, day("2024-12-31"), periodEnd(day("2024-01-01"), PeriodAnnually))
}
