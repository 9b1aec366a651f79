package services_test

import (
	"context"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
	"tradehub/internal/services"
)

type catalogFixture struct {
	store        *repositories.Store
	categories   *services.CategoryService
	products     *services.ProductService
	testimonials *services.TestimonialService
	content      *services.ContentService
	category     *models.Category
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	f := &catalogFixture{
		store:        store,
		categories:   services.NewCategoryService(store.Categories, store.Products, nil),
		products:     services.NewProductService(store.Products, store.Categories, nil),
		testimonials: services.NewTestimonialService(store.Testimonials),
	}
	f.content = services.NewContentService(f.categories, f.products, f.testimonials)

	category, err := f.categories.Create(context.Background(), &models.CategoryPayload{Name: "Packaging"}, nil)
	require.NoError(t, err)
	f.category = category
	return f
}

func (f *catalogFixture) jutePayload() *models.ProductPayload {
	return &models.ProductPayload{
		Name:         "Eco-Friendly Jute Bags",
		SupplierName: "Green Fibre Co.",
		CategoryID:   f.category.ID,
		Description:  "Reusable shopping bags",
		TieredPricing: []models.TierPrice{
			{MinQty: 1, MaxQty: 99, Price: 5},
			{MinQty: 100, MaxQty: 499, Price: 4},
			{MinQty: 500, Price: 3},
		},
	}
}

func TestProductService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	created, err := f.products.Create(ctx, f.jutePayload(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.MOQ, "moq defaults to the first tier's minimum")

	found, err := f.products.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eco-Friendly Jute Bags", found.Name)

	_, err = f.products.Get(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProductService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	p := f.jutePayload()
	p.Name = ""
	_, err := f.products.Create(ctx, p, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err), "name")

	p = f.jutePayload()
	p.CategoryID = "no-such-category"
	_, err = f.products.Create(ctx, p, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err), "categoryId")

	p = f.jutePayload()
	p.TieredPricing = []models.TierPrice{{MinQty: 100, MaxQty: 50, Price: 1}}
	_, err = f.products.Create(ctx, p, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestProductService_Search(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	_, err := f.products.Create(ctx, f.jutePayload(), nil)
	require.NoError(t, err)

	result, err := f.products.Search(ctx, "jute")
	require.NoError(t, err)
	require.Equal(t, 1, result.ProductCount)
	assert.Equal(t, "Eco-Friendly Jute Bags", result.Products[0].Name)

	result, err = f.products.Search(ctx, "GREEN fibre")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProductCount, "supplier names are searched case-insensitively")

	result, err = f.products.Search(ctx, "xyz123")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProductCount)
	assert.NotNil(t, result.Products)

	_, err = f.products.Search(ctx, "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestProductService_PriceForQuantity(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	product, err := f.products.Create(ctx, f.jutePayload(), nil)
	require.NoError(t, err)

	quote, err := f.products.PriceForQuantity(ctx, product.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 4.0, quote.UnitPrice)
	assert.Equal(t, 1000.0, quote.Total)

	quote, err = f.products.PriceForQuantity(ctx, product.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 3.0, quote.UnitPrice)

	_, err = f.products.PriceForQuantity(ctx, product.ID, 0)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestProductService_FeaturedAndFilters(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	featured := f.jutePayload()
	featured.Featured = true
	_, err := f.products.Create(ctx, featured, nil)
	require.NoError(t, err)
	plain := f.jutePayload()
	plain.Name = "Paper Bags"
	_, err = f.products.Create(ctx, plain, nil)
	require.NoError(t, err)

	list, err := f.products.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Featured)

	list, err = f.products.List(ctx, models.ProductFilter{CategoryID: f.category.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCategoryService_DeleteRestrictsWhenProductsExist(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	product, err := f.products.Create(ctx, f.jutePayload(), nil)
	require.NoError(t, err)

	err = f.categories.Delete(ctx, f.category.ID)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = f.categories.Get(ctx, f.category.ID)
	assert.NoError(t, err, "category must survive a refused delete")

	require.NoError(t, f.products.Delete(ctx, product.ID))
	require.NoError(t, f.categories.Delete(ctx, f.category.ID))
	_, err = f.categories.Get(ctx, f.category.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestContentService_DispatchesOnKind(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	created, err := f.content.Create(ctx, &models.TestimonialPayload{Text: "Great supplier", Author: "Dewi"}, nil)
	require.NoError(t, err)
	testimonial, ok := created.(*models.Testimonial)
	require.True(t, ok)

	updated, err := f.content.Update(ctx, testimonial.ID, &models.TestimonialPayload{Text: "Great supplier!", Author: "Dewi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Great supplier!", updated.(*models.Testimonial).Text)

	_, err = f.content.Create(ctx, &models.TestimonialPayload{Text: "missing author"}, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, f.content.Delete(ctx, models.KindTestimonial, testimonial.ID))
	err = f.content.Delete(ctx, models.KindTestimonial, testimonial.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	created, err = f.content.Create(ctx, &models.CategoryPayload{Name: "Textiles"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &models.Category{}, created)
}

func TestContentService_RejectsTestimonialImage(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	image := &multipart.FileHeader{Filename: "dewi.png", Size: 10}

	_, err := f.content.Create(ctx, &models.TestimonialPayload{Text: "Great supplier", Author: "Dewi"}, image)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err), "image")

	testimonials, err := f.testimonials.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, testimonials, "nothing is stored when the upload is rejected")

	created, err := f.content.Create(ctx, &models.TestimonialPayload{Text: "Great supplier", Author: "Dewi"}, nil)
	require.NoError(t, err)
	_, err = f.content.Update(ctx, created.(*models.Testimonial).ID, &models.TestimonialPayload{Text: "Still great", Author: "Dewi"}, image)
	require.ErrorIs(t, err, errs.ErrValidation)
}
