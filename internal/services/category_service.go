package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
	"tradehub/internal/storage"
)

// CategoryService manages product categories.
type CategoryService struct {
	categories repositories.CategoryRepository
	products   repositories.ProductRepository
	images     storage.ImageStore
}

func NewCategoryService(categories repositories.CategoryRepository, products repositories.ProductRepository, images storage.ImageStore) *CategoryService {
	return &CategoryService{categories: categories, products: products, images: images}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.GetAll(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, p *models.CategoryPayload, image *multipart.FileHeader) (*models.Category, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	imagePath, err := saveImage(ctx, s.images, image)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        p.Name,
		Description: p.Description,
		ImagePath:   imagePath,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		removeImage(ctx, s.images, imagePath)
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, p *models.CategoryPayload, image *multipart.FileHeader) (*models.Category, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	imagePath, err := saveImage(ctx, s.images, image)
	if err != nil {
		return nil, err
	}

	oldImage := category.ImagePath
	category.Name = p.Name
	category.Description = p.Description
	if imagePath != "" {
		category.ImagePath = imagePath
	}
	if err := s.categories.Update(ctx, category); err != nil {
		removeImage(ctx, s.images, imagePath)
		return nil, err
	}
	if imagePath != "" {
		removeImage(ctx, s.images, oldImage)
	}
	return category, nil
}

// Delete refuses to remove a category that products still reference.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check products of category %s: %w", id, err)
	}
	if n > 0 {
		return errs.New(errs.ErrConflict, "category %q still has %d products; move or delete them first", category.Name, n)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	removeImage(ctx, s.images, category.ImagePath)
	zap.L().Info("category deleted", zap.String("category_id", id))
	return nil
}
