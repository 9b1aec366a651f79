package services

import (
	"context"

	"tradehub/internal/models"
	"tradehub/internal/repositories"
)

type TestimonialService struct {
	testimonials repositories.TestimonialRepository
}

func NewTestimonialService(testimonials repositories.TestimonialRepository) *TestimonialService {
	return &TestimonialService{testimonials: testimonials}
}

func (s *TestimonialService) List(ctx context.Context) ([]models.Testimonial, error) {
	return s.testimonials.GetAll(ctx)
}

func (s *TestimonialService) Get(ctx context.Context, id string) (*models.Testimonial, error) {
	return s.testimonials.GetByID(ctx, id)
}

func (s *TestimonialService) Create(ctx context.Context, p *models.TestimonialPayload) (*models.Testimonial, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	testimonial := &models.Testimonial{Text: p.Text, Author: p.Author}
	if err := s.testimonials.Create(ctx, testimonial); err != nil {
		return nil, err
	}
	return testimonial, nil
}

func (s *TestimonialService) Update(ctx context.Context, id string, p *models.TestimonialPayload) (*models.Testimonial, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	testimonial, err := s.testimonials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	testimonial.Text = p.Text
	testimonial.Author = p.Author
	if err := s.testimonials.Update(ctx, testimonial); err != nil {
		return nil, err
	}
	return testimonial, nil
}

func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	return s.testimonials.Delete(ctx, id)
}
