package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrInvalidProduct  = errors.New("invalid product")
)

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/catalog")

// ProductRepository loads and saves the whole product collection.
type ProductRepository interface {
	Load(ctx context.Context) ([]domain.Product, error)
	Save(ctx context.Context, products []domain.Product) error
}

type ProductInput struct {
	Name        string
	Quantity    int
	Price       decimal.Decimal
	Unit        domain.Unit
	Description string
}

// ProductPatch is a partial update; nil fields keep their current value.
type ProductPatch struct {
	Name        *string
	Quantity    *int
	Price       *decimal.Decimal
	Unit        *domain.Unit
	Description *string
}

type Repository struct {
	repo ProductRepository
	mu   sync.Mutex
	now  func() time.Time
}

func NewRepository(repo ProductRepository) *Repository {
	return &Repository{
		repo: repo,
		now:  time.Now,
	}
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.List")
	defer span.End()

	products, err := r.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return products, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

// Search returns products whose name contains term, ignoring case.
func (r *Repository) Search(ctx context.Context, term string) ([]domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return products, nil
	}
	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (r *Repository) Add(ctx context.Context, in ProductInput) (domain.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.Add")
	defer span.End()

	product := domain.Product{
		ID:          "product-" + uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Quantity:    in.Quantity,
		Price:       in.Price,
		Unit:        in.Unit,
		Description: in.Description,
		CreatedAt:   r.now().UTC(),
	}
	if err := validate(product); err != nil {
		return domain.Product{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.repo.Load(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to load products: %w", err)
	}
	products = append(products, product)
	if err := r.repo.Save(ctx, products); err != nil {
		return domain.Product{}, fmt.Errorf("failed to save products: %w", err)
	}

	span.SetAttributes(attribute.String("product.id", product.ID))
	return product, nil
}

func (r *Repository) Update(ctx context.Context, id string, patch ProductPatch) (domain.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.Update", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.repo.Load(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to load products: %w", err)
	}

	idx := indexOf(products, id)
	if idx < 0 {
		return domain.Product{}, ErrProductNotFound
	}

	updated := applyPatch(products[idx], patch)
	if err := validate(updated); err != nil {
		return domain.Product{}, err
	}
	products[idx] = updated

	if err := r.repo.Save(ctx, products); err != nil {
		return domain.Product{}, fmt.Errorf("failed to save products: %w", err)
	}
	return updated, nil
}

// Remove deletes the product if present. Orders keep their own copies of
// the product, so nothing else is touched.
func (r *Repository) Remove(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "catalog.Remove", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	kept := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}

	if err := r.repo.Save(ctx, kept); err != nil {
		return fmt.Errorf("failed to save products: %w", err)
	}
	return nil
}

func indexOf(products []domain.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(p domain.Product, patch ProductPatch) domain.Product {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	return p
}

func validate(p domain.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case !p.Unit.Valid():
		return fmt.Errorf("%w: unit must be %s or %s", ErrInvalidProduct, domain.UnitBarrel, domain.UnitMMBTU)
	}
	return nil
}
