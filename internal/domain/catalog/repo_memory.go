package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepo is an in-memory ProductRepository used in dev mode and tests.
type memoryRepo struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*Product
}

func NewMemoryRepo() ProductRepository {
	return &memoryRepo{products: make(map[uuid.UUID]*Product)}
}

func (r *memoryRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Product
	for _, p := range r.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		if f.RequiresPrescription != nil && p.RequiresPrescription != *f.RequiresPrescription {
			continue
		}
		if f.InStock != nil && p.InStock != *f.InStock {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// Seed loads a small demonstration catalog. Dev mode only.
func Seed(ctx context.Context, repo ProductRepository) error {
	seed := []*Product{
		{
			Name:      "Doliprane 1000mg",
			UnitPrice: 250,
			Category:  "pharmacy",
			InStock:   true,
		},
		{
			Name:                 "Amoxicilline 500mg",
			UnitPrice:            890,
			Category:             "pharmacy",
			RequiresPrescription: true,
			InStock:              true,
			Coverage: &InsuranceCoverage{
				Eligible:           true,
				CoveragePercentage: floatPtr(65),
			},
		},
		{
			Name:                 "Ventoline 100µg",
			UnitPrice:            640,
			Category:             "pharmacy",
			RequiresPrescription: true,
			InStock:              true,
			Coverage: &InsuranceCoverage{
				Eligible:           true,
				CoveragePercentage: floatPtr(100),
				RequiresVoucher:    boolPtr(true),
			},
		},
		{
			Name:      "Thermomètre frontal",
			UnitPrice: 2490,
			Category:  "parapharmacy",
			InStock:   true,
		},
		{
			Name:      "Crème solaire SPF50",
			UnitPrice: 1490,
			Category:  "parapharmacy",
			InStock:   false,
		},
	}
	for _, p := range seed {
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
