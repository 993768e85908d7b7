// README: Product catalogue service.
package market

import (
	"context"
	"strings"
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
	"github.com/KamranYsupov/TaxiDriverBot/internal/validation"
)

var (
	ErrNotFound   = apperr.NotFound("product not found")
	ErrOutOfStock = apperr.Conflict("product out of stock")
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id types.ID) (*Product, error)
	ListInStock(ctx context.Context) ([]Product, error)
	DecrementStock(ctx context.Context, id types.ID) error
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.store.ListInStock(ctx)
}

// Available returns the product only while it is in stock.
func (s *Service) Available(ctx context.Context, id types.ID) (*Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.InStock() {
		return nil, ErrOutOfStock
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Product, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Sold(ctx context.Context, id types.ID) error {
	return s.store.DecrementStock(ctx, id)
}

type AddCommand struct {
	Name        string `validate:"trimmed_min2,max=128"`
	Description string `validate:"max=1024"`
	Price       int64  `validate:"gt=0"`
	Quantity    int    `validate:"gte=0"`
}

// Add puts a new product on sale.
func (s *Service) Add(ctx context.Context, cmd AddCommand) (*Product, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	p := &Product{
		ID:          types.NewID(),
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
		Price:       cmd.Price,
		Quantity:    cmd.Quantity,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
