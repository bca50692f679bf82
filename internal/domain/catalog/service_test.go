package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newTestService() *Service {
	return NewService(NewMemoryRepo())
}

func TestCreateProduct_Defaults(t *testing.T) {
	svc := newTestService()
	p := &Product{Name: "Doliprane 1000mg", UnitPrice: 2.5}
	if err := svc.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if p.Category != "other" {
		t.Errorf("expected default category 'other', got %s", p.Category)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.CreateProduct(ctx, &Product{UnitPrice: 1}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := svc.CreateProduct(ctx, &Product{Name: "x", UnitPrice: -1}); err == nil {
		t.Error("expected error for negative price")
	}
	if err := svc.CreateProduct(ctx, &Product{Name: "x", Category: "grocery"}); err == nil {
		t.Error("expected error for invalid category")
	}
	pct := 150.0
	p := &Product{Name: "x", Coverage: &InsuranceCoverage{Eligible: true, CoveragePercentage: &pct}}
	if err := svc.CreateProduct(ctx, p); err == nil {
		t.Error("expected error for coverage percentage above 100")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetProduct(context.Background(), uuid.New())
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListProducts_Filters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if err := Seed(ctx, svc.products); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rx := true
	items, total, err := svc.ListProducts(ctx, Filter{RequiresPrescription: &rx}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 prescription products, got %d", total)
	}
	for _, p := range items {
		if !p.RequiresPrescription {
			t.Errorf("product %s should require a prescription", p.Name)
		}
	}

	_, total, err = svc.ListProducts(ctx, Filter{Category: "parapharmacy"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 parapharmacy products, got %d", total)
	}

	items, _, err = svc.ListProducts(ctx, Filter{Query: "doliprane"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Doliprane 1000mg" {
		t.Errorf("name search failed: %+v", items)
	}
}

func TestReimbursableAmount(t *testing.T) {
	pct := 65.0
	p := &Product{UnitPrice: 10, Coverage: &InsuranceCoverage{Eligible: true, CoveragePercentage: &pct}}
	if got := p.ReimbursableAmount(2); got != 13 {
		t.Errorf("expected 13, got %v", got)
	}

	none := &Product{UnitPrice: 10}
	if got := none.ReimbursableAmount(2); got != 0 {
		t.Errorf("expected 0 for uncovered product, got %v", got)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc := newTestService()
	p := &Product{ID: uuid.New(), Name: "x", UnitPrice: 1}
	if err := svc.UpdateProduct(context.Background(), p); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}
