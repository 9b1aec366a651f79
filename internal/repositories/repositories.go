package repositories

import (
	"context"
	"time"

	"tradehub/internal/models"
)

// Every implementation reports unknown ids with errs.ErrNotFound and duplicate
// unique keys with errs.ErrConflict. Create assigns an id and timestamps when unset.

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// OTPRepository stores at most one reset code per email.
type OTPRepository interface {
	Upsert(ctx context.Context, otp *models.OTP) error
	GetByEmail(ctx context.Context, email string) (*models.OTP, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type CategoryRepository interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	CountByCategory(ctx context.Context, categoryID string) (int64, error)
	// Search matches query case-insensitively as a substring of name, description or supplier name.
	Search(ctx context.Context, query string) ([]models.Product, error)
	IncrementOrderCount(ctx context.Context, id string, by int) error
}

type TestimonialRepository interface {
	GetAll(ctx context.Context) ([]models.Testimonial, error)
	GetByID(ctx context.Context, id string) (*models.Testimonial, error)
	Create(ctx context.Context, testimonial *models.Testimonial) error
	Update(ctx context.Context, testimonial *models.Testimonial) error
	Delete(ctx context.Context, id string) error
}

// InquiryRepository lists newest first.
type InquiryRepository interface {
	GetAll(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error)
	GetByID(ctx context.Context, id string) (*models.Inquiry, error)
	Create(ctx context.Context, inquiry *models.Inquiry) error
	UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) (*models.Inquiry, error)
}

// OrderRepository defines the interface for order data access. Lists are newest first.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Users        UserRepository
	OTPs         OTPRepository
	Categories   CategoryRepository
	Products     ProductRepository
	Testimonials TestimonialRepository
	Inquiries    InquiryRepository
	Orders       OrderRepository
	// ExpiringOTPs is true when the backend purges expired OTPs by itself.
	ExpiringOTPs bool
	Close        func(ctx context.Context) error
}
