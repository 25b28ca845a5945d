package reports

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/shopledger/shopledger/internal/shared"
)

var oneHundred = decimal.NewFromInt(100)

// Service assembles report payloads from the read-only repository, caching
// the expensive aggregations behind the versioned cache.
type Service struct {
	logger *slog.Logger
	repo   Repository
	cache  *Cache
}

// NewService builds the reporting service. cache may be nil in tests.
func NewService(logger *slog.Logger, repo Repository, cache *Cache) *Service {
	return &Service{logger: logger, repo: repo, cache: cache}
}

// ListSales returns sold order lines with catalog context, newest first.
func (s *Service) ListSales(ctx context.Context, filter SalesFilter, page shared.Page) ([]SaleItem, int, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.ListSales(ctx, filter, page.Normalize())
}

// RevenueSummary buckets revenue into calendar periods. Buckets with no
// sales are absent rather than zero-valued.
func (s *Service) RevenueSummary(ctx context.Context, period string, rng shared.DateRange, categoryID *int64) (RevenueSummary, error) {
	if _, err := truncUnit(period); err != nil {
		return RevenueSummary{}, err
	}
	if err := rng.Validate(); err != nil {
		return RevenueSummary{}, err
	}

	key, err := s.cache.BuildKey(ctx, "reports", "summary", period, cacheRangePart(rng), cacheCategoryPart(categoryID))
	if err != nil {
		return RevenueSummary{}, err
	}

	var summary RevenueSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		buckets, err := s.repo.RevenueByPeriod(ctx, period, rng, categoryID)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for i := range buckets {
			buckets[i].PeriodEnd = periodEnd(buckets[i].PeriodStart, period)
			total = total.Add(buckets[i].TotalRevenue)
		}
		return RevenueSummary{Period: period, Buckets: buckets, TotalRevenue: total}, nil
	})
	if err != nil {
		return RevenueSummary{}, err
	}
	return summary, nil
}

// CompareRevenue contrasts the revenue of two fully bounded date ranges.
// When the baseline is zero and the second period is not, the percentage is
// reported as unbounded instead of a division blowing up.
func (s *Service) CompareRevenue(ctx context.Context, rng1, rng2 shared.DateRange, categoryID *int64) (Comparison, error) {
	for _, rng := range []shared.DateRange{rng1, rng2} {
		if rng.From.IsZero() || rng.To.IsZero() {
			return Comparison{}, fmt.Errorf("%w: both comparison periods need a start and end date", shared.ErrValidation)
		}
		if err := rng.Validate(); err != nil {
			return Comparison{}, err
		}
	}

	var total1, total2 decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total1, err = s.repo.RevenueTotal(gctx, rng1, categoryID)
		return err
	})
	g.Go(func() error {
		var err error
		total2, err = s.repo.RevenueTotal(gctx, rng2, categoryID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	difference := total2.Sub(total1)
	var change PercentChange
	switch {
	case total1.IsZero() && total2.IsZero():
		change = PercentChange{Value: decimal.Zero}
	case total1.IsZero():
		change = PercentChange{Unbounded: true}
	default:
		change = PercentChange{Value: difference.Div(total1).Mul(oneHundred).Round(2)}
	}

	return Comparison{
		Period1:       PeriodRevenue{StartDate: rng1.FromStart(), EndDate: rng1.ToEnd(), TotalRevenue: total1},
		Period2:       PeriodRevenue{StartDate: rng2.FromStart(), EndDate: rng2.ToEnd(), TotalRevenue: total2},
		Difference:    difference,
		PercentChange: change,
	}, nil
}

func cacheRangePart(rng shared.DateRange) string {
	const layout = "2006-01-02"
	from, to := "open", "open"
	if !rng.From.IsZero() {
		from = rng.From.Format(layout)
	}
	if !rng.To.IsZero() {
		to = rng.To.Format(layout)
	}
	return from + ".." + to
}

func cacheCategoryPart(categoryID *int64) string {
	if categoryID == nil {
		return "all"
	}
	return fmt.Sprintf("cat%d", *categoryID)
}
