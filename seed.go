package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tradehub/internal/models"
	"tradehub/internal/repositories"
)

// seedCatalog populates an empty store with a small demo catalog. A store that
// already has categories is left untouched.
func seedCatalog(ctx context.Context, store *repositories.Store) error {
	existing, err := store.Categories.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	packaging := &models.Category{Name: "Packaging", Description: "Bags, boxes and wrapping for retail and shipping"}
	textiles := &models.Category{Name: "Textiles", Description: "Fabrics, garments and home textiles"}
	for _, c := range []*models.Category{packaging, textiles} {
		if err := store.Categories.Create(ctx, c); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}

	products := []models.Product{
		{
			Name:         "Eco-Friendly Jute Bags",
			SupplierName: "Green Fibre Co.",
			CategoryID:   packaging.ID,
			Verified:     true,
			Featured:     true,
			Description:  "Reusable jute shopping bags with cotton handles.",
			TieredPricing: []models.TierPrice{
				{MinQty: 100, MaxQty: 499, Price: 4},
				{MinQty: 500, MaxQty: 999, Price: 3},
				{MinQty: 1000, Price: 2.5},
			},
			MOQ:            100,
			Specifications: models.Specifications{Material: "Jute", Size: "40x35 cm", Origin: "Bangladesh"},
		},
		{
			Name:         "Corrugated Shipping Boxes",
			SupplierName: "BoxWorks",
			CategoryID:   packaging.ID,
			Verified:     true,
			Description:  "Double wall boxes for e-commerce fulfilment.",
			TieredPricing: []models.TierPrice{
				{MinQty: 200, MaxQty: 999, Price: 0.9},
				{MinQty: 1000, Price: 0.65},
			},
			MOQ:            200,
			Specifications: models.Specifications{Material: "Kraft board", Capacity: "20 kg"},
		},
		{
			Name:         "Organic Cotton T-Shirts",
			SupplierName: "Loomhouse Textiles",
			CategoryID:   textiles.ID,
			Featured:     true,
			Description:  "Plain crew neck tees, GOTS certified.",
			TieredPricing: []models.TierPrice{
				{MinQty: 50, MaxQty: 299, Price: 6.5},
				{MinQty: 300, Price: 5.2},
			},
			MOQ:            50,
			Specifications: models.Specifications{Material: "Organic cotton", Weight: "180 gsm", Certification: "GOTS"},
		},
	}
	for i := range products {
		if err := store.Products.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		zap.L().Info("seeded product", zap.String("name", products[i].Name), zap.String("id", products[i].ID))
	}

	testimonials := []models.Testimonial{
		{Text: "We sourced our whole packaging line here in a week.", Author: "Retail buyer, Jakarta"},
		{Text: "Tiered pricing made our bulk order easy to plan.", Author: "Procurement lead, Surabaya"},
	}
	for i := range testimonials {
		if err := store.Testimonials.Create(ctx, &testimonials[i]); err != nil {
			return fmt.Errorf("failed to seed testimonial: %w", err)
		}
	}
	return nil
}
