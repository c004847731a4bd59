package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/kv"
	"github.com/fjod/oil_storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepository struct {
	err error
}

func (f failingRepository) Load(context.Context) ([]domain.Product, error) {
	return nil, f.err
}

func (f failingRepository) Save(context.Context, []domain.Product) error {
	return f.err
}

func setupCatalog(t *testing.T) (*Repository, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	sut := NewRepository(repository.NewProductRepository(store))
	sut.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return sut, store
}

func brent() ProductInput {
	return ProductInput{
		Name:        "Brent Crude",
		Quantity:    1200,
		Price:       decimal.RequireFromString("74.25"),
		Unit:        domain.UnitBarrel,
		Description: "North Sea light sweet",
	}
}

func TestAdd_Success(t *testing.T) {
	sut, _ := setupCatalog(t)

	product, err := sut.Add(context.Background(), brent())
	require.NoError(t, err)

	assert.Contains(t, product.ID, "product-")
	assert.Equal(t, "Brent Crude", product.Name)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), product.CreatedAt)

	products, err := sut.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, product.ID, products[0].ID)
}

func TestAdd_AssignsUniqueIDsInInsertionOrder(t *testing.T) {
	sut, _ := setupCatalog(t)
	ctx := context.Background()

	first, err := sut.Add(ctx, brent())
	require.NoError(t, err)
	gas := ProductInput{Name: "Henry Hub", Quantity: 0, Price: decimal.RequireFromString("2.9"), Unit: domain.UnitMMBTU}
	second, err := sut.Add(ctx, gas)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	products, err := sut.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, []string{products[0].ID, products[1].ID})
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ProductInput)
		errMsg string
	}{
		{"negative quantity", func(in *ProductInput) { in.Quantity = -1 }, "quantity"},
		{"negative price", func(in *ProductInput) { in.Price = decimal.RequireFromString("-0.01") }, "price"},
		{"unknown unit", func(in *ProductInput) { in.Unit = "Tonne" }, "unit"},
		{"blank name", func(in *ProductInput) { in.Name = "   " }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sut, store := setupCatalog(t)
			in := brent()
			tt.modify(&in)

			_, err := sut.Add(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidProduct)
			assert.ErrorContains(t, err, tt.errMsg)

			_, getErr := store.Get(context.Background(), repository.ProductsKey)
			assert.ErrorIs(t, getErr, kv.ErrKeyNotFound, "nothing should be persisted")
		})
	}
}

func TestAdd_ZeroQuantityAndPriceAllowed(t *testing.T) {
	sut, _ := setupCatalog(t)
	in := brent()
	in.Quantity = 0
	in.Price = decimal.Zero

	_, err := sut.Add(context.Background(), in)
	assert.NoError(t, err)
}

func TestUpdate_PartialKeepsUnsetFields(t *testing.T) {
	sut, _ := setupCatalog(t)
	ctx := context.Background()

	product, err := sut.Add(ctx, brent())
	require.NoError(t, err)

	sut.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	newPrice := decimal.RequireFromString("80.00")
	updated, err := sut.Update(ctx, product.ID, ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	assert.Equal(t, product.ID, updated.ID)
	assert.Equal(t, product.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Brent Crude", updated.Name)
	assert.Equal(t, 1200, updated.Quantity)
	assert.Equal(t, "North Sea light sweet", updated.Description)
	assert.True(t, newPrice.Equal(updated.Price))

	stored, err := sut.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, newPrice.Equal(stored.Price))
}

func TestUpdate_NotFound(t *testing.T) {
	sut, _ := setupCatalog(t)

	name := "ghost"
	_, err := sut.Update(context.Background(), "product-missing", ProductPatch{Name: &name})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_RejectsInvalidMerge(t *testing.T) {
	sut, _ := setupCatalog(t)
	ctx := context.Background()
	product, err := sut.Add(ctx, brent())
	require.NoError(t, err)

	qty := -5
	_, err = sut.Update(ctx, product.ID, ProductPatch{Quantity: &qty})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	stored, err := sut.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1200, stored.Quantity)
}

func TestRemove(t *testing.T) {
	sut, _ := setupCatalog(t)
	ctx := context.Background()
	product, err := sut.Add(ctx, brent())
	require.NoError(t, err)

	require.NoError(t, sut.Remove(ctx, product.ID))
	_, err = sut.Get(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	// Removing a missing product is a no-op
	assert.NoError(t, sut.Remove(ctx, product.ID))
}

func TestSearch_CaseInsensitive(t *testing.T) {
	sut, _ := setupCatalog(t)
	ctx := context.Background()
	_, err := sut.Add(ctx, brent())
	require.NoError(t, err)
	_, err = sut.Add(ctx, ProductInput{Name: "WTI Crude", Quantity: 10, Price: decimal.NewFromInt(70), Unit: domain.UnitBarrel})
	require.NoError(t, err)
	_, err = sut.Add(ctx, ProductInput{Name: "Henry Hub Gas", Quantity: 10, Price: decimal.NewFromInt(3), Unit: domain.UnitMMBTU})
	require.NoError(t, err)

	crude, err := sut.Search(ctx, "CRUDE")
	require.NoError(t, err)
	assert.Len(t, crude, 2)

	all, err := sut.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := sut.Search(ctx, "diesel")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepositoryError(t *testing.T) {
	sut := NewRepository(failingRepository{err: errors.New("database error")})
	ctx := context.Background()

	_, err := sut.List(ctx)
	require.ErrorContains(t, err, "database error")
	_, err = sut.Add(ctx, brent())
	require.ErrorContains(t, err, "database error")
	err = sut.Remove(ctx, "product-1")
	require.ErrorContains(t, err, "database error")
}
