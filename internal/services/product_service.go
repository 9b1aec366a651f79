package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
	"tradehub/internal/storage"
)

const maxSearchQueryLength = 100

// ProductService handles catalog listings, search and tier pricing.
type ProductService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	images     storage.ImageStore
}

// NewProductService creates a new ProductService.
func NewProductService(products repositories.ProductRepository, categories repositories.CategoryRepository, images storage.ImageStore) *ProductService {
	return &ProductService{products: products, categories: categories, images: images}
}

func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return s.products.GetAll(ctx, filter)
}

func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	featured := true
	return s.products.GetAll(ctx, models.ProductFilter{Featured: &featured})
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Search matches query against name, description and supplier, ignoring case.
func (s *ProductService) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Validation("Validation failed", map[string]string{"q": "search query is required"})
	}
	if len(query) > maxSearchQueryLength {
		return nil, errs.Validation("Validation failed", map[string]string{"q": "search query is too long"})
	}

	products, err := s.products.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return &models.SearchResult{Query: query, Products: products, ProductCount: len(products)}, nil
}

// PriceQuote is the price of buying Quantity units of a product.
type PriceQuote struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

func (s *ProductService) PriceForQuantity(ctx context.Context, id string, qty int) (*PriceQuote, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	unit, err := product.PriceForQuantity(qty)
	if err != nil {
		return nil, err
	}
	return &PriceQuote{ProductID: product.ID, Quantity: qty, UnitPrice: unit, Total: unit * float64(qty)}, nil
}

func (s *ProductService) Create(ctx context.Context, p *models.ProductPayload, image *multipart.FileHeader) (*models.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	imagePath, err := saveImage(ctx, s.images, image)
	if err != nil {
		return nil, err
	}

	product := &models.Product{ImagePath: imagePath}
	applyProductPayload(product, p)
	if err := s.products.Create(ctx, product); err != nil {
		removeImage(ctx, s.images, imagePath)
		return nil, err
	}
	zap.L().Info("product created", zap.String("product_id", product.ID), zap.String("category_id", product.CategoryID))
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, p *models.ProductPayload, image *multipart.FileHeader) (*models.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	imagePath, err := saveImage(ctx, s.images, image)
	if err != nil {
		return nil, err
	}

	oldImage := product.ImagePath
	applyProductPayload(product, p)
	if imagePath != "" {
		product.ImagePath = imagePath
	}
	if err := s.products.Update(ctx, product); err != nil {
		removeImage(ctx, s.images, imagePath)
		return nil, err
	}
	if imagePath != "" {
		removeImage(ctx, s.images, oldImage)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	removeImage(ctx, s.images, product.ImagePath)
	return nil
}

func (s *ProductService) requireCategory(ctx context.Context, id string) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Validation("Validation failed", map[string]string{"categoryId": "category does not exist"})
		}
		return err
	}
	return nil
}

func applyProductPayload(product *models.Product, p *models.ProductPayload) {
	product.Name = p.Name
	product.SupplierName = strings.TrimSpace(p.SupplierName)
	product.TieredPricing = p.TieredPricing
	product.MOQ = p.MOQ
	product.CategoryID = p.CategoryID
	product.Verified = p.Verified
	product.Featured = p.Featured
	product.Description = p.Description
	product.Specifications = p.Specifications
}
