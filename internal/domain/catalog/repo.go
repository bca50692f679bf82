package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrProductNotFound is returned when a product id does not exist.
var ErrProductNotFound = errors.New("product not found")

// Filter narrows product listings. Zero values mean "no filter".
type Filter struct {
	Category             string
	Query                string
	RequiresPrescription *bool
	InStock              *bool
}

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Product, int, error)
}
