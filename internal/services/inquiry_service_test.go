package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/services"
)

func TestInquiryService_Submit(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	product, err := f.products.Create(ctx, f.jutePayload(), nil)
	require.NoError(t, err)

	publisher := new(MockPublisher)
	publisher.On("Publish", ctx, services.EventInquiryCreated, mock.Anything).Return(nil).Once()
	inquiries := services.NewInquiryService(f.store.Inquiries, f.store.Products, publisher)

	inquiry, err := inquiries.Submit(ctx, services.InquiryInput{
		ProductID: product.ID,
		Name:      "Budi",
		Email:     "Budi@Example.com",
		Company:   "Toko Budi",
		Quantity:  300,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryPending, inquiry.Status)
	assert.Equal(t, "Eco-Friendly Jute Bags", inquiry.ProductName)
	assert.Equal(t, "budi@example.com", inquiry.Email)
	publisher.AssertExpectations(t)

	// The product name is a snapshot taken at submission.
	rename := f.jutePayload()
	rename.Name = "Jute Tote"
	_, err = f.products.Update(ctx, product.ID, rename, nil)
	require.NoError(t, err)
	stored, err := inquiries.Get(ctx, inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eco-Friendly Jute Bags", stored.ProductName)
}

func TestInquiryService_SubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	inquiries := services.NewInquiryService(f.store.Inquiries, f.store.Products, nil)

	_, err := inquiries.Submit(ctx, services.InquiryInput{
		ProductID: "missing",
		Name:      "Budi",
		Email:     "budi@example.com",
		Quantity:  1,
	})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err), "productId")

	_, err = inquiries.Submit(ctx, services.InquiryInput{ProductID: "missing"})
	require.ErrorIs(t, err, errs.ErrValidation)
	fields := errs.Fields(err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "quantity")
}

func TestInquiryService_StatusIsAFlatSet(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	product, err := f.products.Create(ctx, f.jutePayload(), nil)
	require.NoError(t, err)
	inquiries := services.NewInquiryService(f.store.Inquiries, f.store.Products, nil)

	inquiry, err := inquiries.Submit(ctx, services.InquiryInput{
		ProductID: product.ID, Name: "Budi", Email: "budi@example.com", Quantity: 10,
	})
	require.NoError(t, err)

	for _, status := range []models.InquiryStatus{models.InquiryClosed, models.InquiryPending, models.InquiryContacted} {
		updated, err := inquiries.UpdateStatus(ctx, inquiry.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	_, err = inquiries.UpdateStatus(ctx, inquiry.ID, "archived")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = inquiries.UpdateStatus(ctx, "missing", models.InquiryClosed)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	contacted, err := inquiries.List(ctx, models.InquiryFilter{Status: models.InquiryContacted})
	require.NoError(t, err)
	assert.Len(t, contacted, 1)
	pending, err := inquiries.List(ctx, models.InquiryFilter{Status: models.InquiryPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
