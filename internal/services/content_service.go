package services

import (
	"context"
	"mime/multipart"

	"tradehub/internal/errs"
	"tradehub/internal/models"
)

// ContentService routes admin writes to the service owning each payload kind.
type ContentService struct {
	categories   *CategoryService
	products     *ProductService
	testimonials *TestimonialService
}

func testimonialImageError() error {
	return errs.Validation("Validation failed", map[string]string{"image": "testimonials do not take an image"})
}

func NewContentService(categories *CategoryService, products *ProductService, testimonials *TestimonialService) *ContentService {
	return &ContentService{categories: categories, products: products, testimonials: testimonials}
}

// Create stores a new entity of the payload's kind. Testimonials carry no image
// and an upload sent with one is rejected.
func (s *ContentService) Create(ctx context.Context, payload models.AdminPayload, image *multipart.FileHeader) (interface{}, error) {
	switch p := payload.(type) {
	case *models.CategoryPayload:
		return s.categories.Create(ctx, p, image)
	case *models.ProductPayload:
		return s.products.Create(ctx, p, image)
	case *models.TestimonialPayload:
		if image != nil {
			return nil, testimonialImageError()
		}
		return s.testimonials.Create(ctx, p)
	default:
		return nil, errs.New(errs.ErrValidation, "unsupported content kind %q", payload.Kind())
	}
}

func (s *ContentService) Update(ctx context.Context, id string, payload models.AdminPayload, image *multipart.FileHeader) (interface{}, error) {
	switch p := payload.(type) {
	case *models.CategoryPayload:
		return s.categories.Update(ctx, id, p, image)
	case *models.ProductPayload:
		return s.products.Update(ctx, id, p, image)
	case *models.TestimonialPayload:
		if image != nil {
			return nil, testimonialImageError()
		}
		return s.testimonials.Update(ctx, id, p)
	default:
		return nil, errs.New(errs.ErrValidation, "unsupported content kind %q", payload.Kind())
	}
}

func (s *ContentService) Delete(ctx context.Context, kind models.EntityKind, id string) error {
	switch kind {
	case models.KindCategory:
		return s.categories.Delete(ctx, id)
	case models.KindProduct:
		return s.products.Delete(ctx, id)
	case models.KindTestimonial:
		return s.testimonials.Delete(ctx, id)
	default:
		return errs.New(errs.ErrValidation, "unsupported content kind %q", kind)
	}
}
