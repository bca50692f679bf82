package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	products ProductRepository
}

func NewService(products ProductRepository) *Service {
	return &Service{products: products}
}

var validCategories = map[string]bool{
	"pharmacy": true, "parapharmacy": true, "medical-device": true, "other": true,
}

func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.UnitPrice < 0 {
		return fmt.Errorf("unit_price must not be negative")
	}
	if p.Category == "" {
		p.Category = "other"
	}
	if !validCategories[p.Category] {
		return fmt.Errorf("invalid category: %s", p.Category)
	}
	if p.Coverage != nil && p.Coverage.CoveragePercentage != nil {
		pct := *p.Coverage.CoveragePercentage
		if pct < 0 || pct > 100 {
			return fmt.Errorf("coverage_percentage must be between 0 and 100")
		}
	}
	return s.products.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.UnitPrice < 0 {
		return fmt.Errorf("unit_price must not be negative")
	}
	if p.Category != "" && !validCategories[p.Category] {
		return fmt.Errorf("invalid category: %s", p.Category)
	}
	return s.products.Update(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f Filter, limit, offset int) ([]*Product, int, error) {
	return s.products.List(ctx, f, limit, offset)
}
