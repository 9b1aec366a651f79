package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
)

// InquiryInput is a buyer's quote request form.
type InquiryInput struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Company   string `json:"company" validate:"max=200"`
	Phone     string `json:"phone" validate:"max=50"`
	Message   string `json:"message" validate:"max=5000"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// InquiryService records quote requests and lets operators track them.
type InquiryService struct {
	inquiries repositories.InquiryRepository
	products  repositories.ProductRepository
	publisher EventPublisher
}

func NewInquiryService(inquiries repositories.InquiryRepository, products repositories.ProductRepository, publisher EventPublisher) *InquiryService {
	return &InquiryService{inquiries: inquiries, products: products, publisher: publisher}
}

// Submit stores an inquiry, snapshotting the product's current name.
func (s *InquiryService) Submit(ctx context.Context, in InquiryInput) (*models.Inquiry, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("Validation failed", map[string]string{"productId": "product does not exist"})
		}
		return nil, err
	}

	inquiry := &models.Inquiry{
		ProductID:   product.ID,
		ProductName: product.Name,
		Name:        in.Name,
		Email:       in.Email,
		Company:     strings.TrimSpace(in.Company),
		Phone:       strings.TrimSpace(in.Phone),
		Message:     strings.TrimSpace(in.Message),
		Quantity:    in.Quantity,
		Status:      models.InquiryPending,
	}
	if err := s.inquiries.Create(ctx, inquiry); err != nil {
		return nil, err
	}

	zap.L().Info("inquiry submitted", zap.String("inquiry_id", inquiry.ID), zap.String("product_id", product.ID))
	publish(ctx, s.publisher, EventInquiryCreated, map[string]interface{}{
		"inquiryId": inquiry.ID,
		"productId": inquiry.ProductID,
		"quantity":  inquiry.Quantity,
	})
	return inquiry, nil
}

func (s *InquiryService) List(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errs.Validation("Validation failed", map[string]string{"status": "unknown inquiry status"})
	}
	return s.inquiries.GetAll(ctx, filter)
}

func (s *InquiryService) Get(ctx context.Context, id string) (*models.Inquiry, error) {
	return s.inquiries.GetByID(ctx, id)
}

// UpdateStatus sets any of the known statuses regardless of the current one.
func (s *InquiryService) UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) (*models.Inquiry, error) {
	if !status.Valid() {
		return nil, errs.Validation("Validation failed", map[string]string{
			"status": "status must be one of [pending contacted closed]",
		})
	}
	return s.inquiries.UpdateStatus(ctx, id, status)
}
