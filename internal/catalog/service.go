package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopledger/shopledger/internal/shared"
)

// Service coordinates catalog operations and enforces uniqueness and
// referential-integrity rules before touching storage.
type Service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCategories(ctx context.Context, page shared.Page) ([]Category, int, error) {
	return s.repo.ListCategories(ctx, page.Normalize())
}

func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, input CreateCategoryInput) (Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", shared.ErrValidation)
	}
	if _, err := s.repo.GetCategoryByName(ctx, input.Name); err == nil {
		return Category{}, fmt.Errorf("%w: category %q already exists", shared.ErrConflict, input.Name)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Category{}, err
	}
	return s.repo.CreateCategory(ctx, input)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, input UpdateCategoryInput) (Category, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Category{}, fmt.Errorf("%w: category name cannot be empty", shared.ErrValidation)
		}
		input.Name = &name
		if existing, err := s.repo.GetCategoryByName(ctx, name); err == nil && existing.ID != id {
			return Category{}, fmt.Errorf("%w: category %q already exists", shared.ErrConflict, name)
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Category{}, err
		}
	}
	return s.repo.UpdateCategory(ctx, id, input)
}

// DeleteCategory refuses while any product still references the category;
// the caller must reassign or remove those products first.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category %d is referenced by %d product(s)", shared.ErrConflict, id, count)
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, filter ProductFilter, page shared.Page) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter, page.Normalize())
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct atomically creates the product, its stock record, and the
// initial stock log entry.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if !input.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", shared.ErrValidation)
	}
	if input.InitialQuantity < 0 {
		return Product{}, fmt.Errorf("%w: initial quantity cannot be negative", shared.ErrValidation)
	}
	threshold := DefaultLowStockThreshold
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return Product{}, fmt.Errorf("%w: low stock threshold cannot be negative", shared.ErrValidation)
		}
		threshold = *input.LowStockThreshold
	}

	if _, err := s.repo.GetCategory(ctx, input.CategoryID); err != nil {
		return Product{}, err
	}
	if input.SKU != nil && *input.SKU != "" {
		if _, err := s.repo.GetProductBySKU(ctx, *input.SKU); err == nil {
			return Product{}, fmt.Errorf("%w: sku %q already in use", shared.ErrConflict, *input.SKU)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return Product{}, err
		}
	}

	return s.repo.CreateProductWithStock(ctx, input, threshold)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Price != nil && !input.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", shared.ErrValidation)
	}
	if input.CategoryID != nil && *input.CategoryID != existing.CategoryID {
		if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
			return Product{}, err
		}
	}
	if input.SKU != nil && *input.SKU != "" {
		if other, err := s.repo.GetProductBySKU(ctx, *input.SKU); err == nil && other.ID != id {
			return Product{}, fmt.Errorf("%w: sku %q already in use", shared.ErrConflict, *input.SKU)
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Product{}, err
		}
	}
	return s.repo.UpdateProduct(ctx, id, input)
}

// DeleteProduct refuses while any order line references the product so sales
// history survives; the stock record goes with the product, the stock log
// history does not.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountOrderLinesForProduct(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: product %d appears on %d order line(s)", shared.ErrConflict, id, count)
	}
	return s.repo.DeleteProduct(ctx, id)
}
