package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradehub/internal/errs"
	"tradehub/internal/models"
)

// memTable is an insertion-ordered map guarded by a RWMutex.
type memTable[T any] struct {
	mu   sync.RWMutex
	rows map[string]T
	ids  []string
}

func newMemTable[T any]() *memTable[T] {
	return &memTable[T]{rows: make(map[string]T)}
}

func (t *memTable[T]) list(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		row := t.rows[id]
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

func (t *memTable[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func (t *memTable[T]) insert(id string, row T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; !exists {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = row
}

func (t *memTable[T]) update(id string, fn func(*T)) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return row, false
	}
	fn(&row)
	t.rows[id] = row
	return row, true
}

func (t *memTable[T]) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, existing := range t.ids {
		if existing == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return true
}

func newestFirst[T any](rows []T) []T {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func ensureTime(ts *time.Time) {
	if ts.IsZero() {
		*ts = time.Now().UTC()
	}
}

// NewMemoryStore returns a Store backed by process memory. Nothing survives a restart.
func NewMemoryStore() *Store {
	return &Store{
		Users:        NewMemoryUserRepository(),
		OTPs:         NewMemoryOTPRepository(),
		Categories:   NewMemoryCategoryRepository(),
		Products:     NewMemoryProductRepository(),
		Testimonials: NewMemoryTestimonialRepository(),
		Inquiries:    NewMemoryInquiryRepository(),
		Orders:       NewMemoryOrderRepository(),
		Close:        func(context.Context) error { return nil },
	}
}

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users *memTable[models.User]
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: newMemTable[models.User]()}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if len(r.users.list(func(u models.User) bool { return u.Email == email })) > 0 {
		return errs.New(errs.ErrConflict, "email already registered")
	}
	ensureID(&user.ID)
	ensureTime(&user.CreatedAt)
	user.Email = email
	r.users.insert(user.ID, *user)
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	found := r.users.list(func(u models.User) bool { return u.Email == email })
	if len(found) == 0 {
		return nil, errs.NotFound("user", email)
	}
	return &found[0], nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := r.users.get(id)
	if !ok {
		return nil, errs.NotFound("user", id)
	}
	return &user, nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	if _, ok := r.users.update(id, func(u *models.User) { u.PasswordHash = passwordHash }); !ok {
		return errs.NotFound("user", id)
	}
	return nil
}

// MemoryOTPRepository is an in-memory implementation of OTPRepository.
type MemoryOTPRepository struct {
	otps *memTable[models.OTP]
}

func NewMemoryOTPRepository() *MemoryOTPRepository {
	return &MemoryOTPRepository{otps: newMemTable[models.OTP]()}
}

func (r *MemoryOTPRepository) Upsert(_ context.Context, otp *models.OTP) error {
	otp.Email = strings.ToLower(otp.Email)
	ensureTime(&otp.CreatedAt)
	r.otps.insert(otp.Email, *otp)
	return nil
}

func (r *MemoryOTPRepository) GetByEmail(_ context.Context, email string) (*models.OTP, error) {
	otp, ok := r.otps.get(strings.ToLower(email))
	if !ok {
		return nil, errs.NotFound("otp", email)
	}
	return &otp, nil
}

func (r *MemoryOTPRepository) Delete(_ context.Context, email string) error {
	r.otps.remove(strings.ToLower(email))
	return nil
}

func (r *MemoryOTPRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, otp := range r.otps.list(func(o models.OTP) bool { return o.Expired(now) }) {
		if r.otps.remove(otp.Email) {
			n++
		}
	}
	return n, nil
}

// MemoryCategoryRepository is an in-memory implementation of CategoryRepository.
type MemoryCategoryRepository struct {
	categories *memTable[models.Category]
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{categories: newMemTable[models.Category]()}
}

func (r *MemoryCategoryRepository) GetAll(context.Context) ([]models.Category, error) {
	return r.categories.list(nil), nil
}

func (r *MemoryCategoryRepository) GetByID(_ context.Context, id string) (*models.Category, error) {
	category, ok := r.categories.get(id)
	if !ok {
		return nil, errs.NotFound("category", id)
	}
	return &category, nil
}

func (r *MemoryCategoryRepository) Create(_ context.Context, category *models.Category) error {
	ensureID(&category.ID)
	ensureTime(&category.CreatedAt)
	r.categories.insert(category.ID, *category)
	return nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, category *models.Category) error {
	if _, ok := r.categories.update(category.ID, func(c *models.Category) { *c = *category }); !ok {
		return errs.NotFound("category", category.ID)
	}
	return nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id string) error {
	if !r.categories.remove(id) {
		return errs.NotFound("category", id)
	}
	return nil
}

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products *memTable[models.Product]
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: newMemTable[models.Product]()}
}

func (r *MemoryProductRepository) GetAll(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return r.products.list(func(p models.Product) bool {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			return false
		}
		if filter.Featured != nil && p.Featured != *filter.Featured {
			return false
		}
		if filter.Verified != nil && p.Verified != *filter.Verified {
			return false
		}
		return true
	}), nil
}

func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	product, ok := r.products.get(id)
	if !ok {
		return nil, errs.NotFound("product", id)
	}
	return &product, nil
}

func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	ensureID(&product.ID)
	ensureTime(&product.CreatedAt)
	product.UpdatedAt = product.CreatedAt
	r.products.insert(product.ID, *product)
	return nil
}

func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	if _, ok := r.products.update(product.ID, func(p *models.Product) { *p = *product }); !ok {
		return errs.NotFound("product", product.ID)
	}
	return nil
}

func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	if !r.products.remove(id) {
		return errs.NotFound("product", id)
	}
	return nil
}

func (r *MemoryProductRepository) CountByCategory(_ context.Context, categoryID string) (int64, error) {
	return int64(len(r.products.list(func(p models.Product) bool { return p.CategoryID == categoryID }))), nil
}

func (r *MemoryProductRepository) Search(_ context.Context, query string) ([]models.Product, error) {
	q := strings.ToLower(query)
	return r.products.list(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.SupplierName), q)
	}), nil
}

func (r *MemoryProductRepository) IncrementOrderCount(_ context.Context, id string, by int) error {
	if _, ok := r.products.update(id, func(p *models.Product) { p.OrderCount += by }); !ok {
		return errs.NotFound("product", id)
	}
	return nil
}

// MemoryTestimonialRepository is an in-memory implementation of TestimonialRepository.
type MemoryTestimonialRepository struct {
	testimonials *memTable[models.Testimonial]
}

func NewMemoryTestimonialRepository() *MemoryTestimonialRepository {
	return &MemoryTestimonialRepository{testimonials: newMemTable[models.Testimonial]()}
}

func (r *MemoryTestimonialRepository) GetAll(context.Context) ([]models.Testimonial, error) {
	return r.testimonials.list(nil), nil
}

func (r *MemoryTestimonialRepository) GetByID(_ context.Context, id string) (*models.Testimonial, error) {
	testimonial, ok := r.testimonials.get(id)
	if !ok {
		return nil, errs.NotFound("testimonial", id)
	}
	return &testimonial, nil
}

func (r *MemoryTestimonialRepository) Create(_ context.Context, testimonial *models.Testimonial) error {
	ensureID(&testimonial.ID)
	ensureTime(&testimonial.CreatedAt)
	r.testimonials.insert(testimonial.ID, *testimonial)
	return nil
}

func (r *MemoryTestimonialRepository) Update(_ context.Context, testimonial *models.Testimonial) error {
	if _, ok := r.testimonials.update(testimonial.ID, func(t *models.Testimonial) { *t = *testimonial }); !ok {
		return errs.NotFound("testimonial", testimonial.ID)
	}
	return nil
}

func (r *MemoryTestimonialRepository) Delete(_ context.Context, id string) error {
	if !r.testimonials.remove(id) {
		return errs.NotFound("testimonial", id)
	}
	return nil
}

// MemoryInquiryRepository is an in-memory implementation of InquiryRepository.
type MemoryInquiryRepository struct {
	inquiries *memTable[models.Inquiry]
}

func NewMemoryInquiryRepository() *MemoryInquiryRepository {
	return &MemoryInquiryRepository{inquiries: newMemTable[models.Inquiry]()}
}

func (r *MemoryInquiryRepository) GetAll(_ context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	return newestFirst(r.inquiries.list(func(i models.Inquiry) bool {
		return filter.Status == "" || i.Status == filter.Status
	})), nil
}

func (r *MemoryInquiryRepository) GetByID(_ context.Context, id string) (*models.Inquiry, error) {
	inquiry, ok := r.inquiries.get(id)
	if !ok {
		return nil, errs.NotFound("inquiry", id)
	}
	return &inquiry, nil
}

func (r *MemoryInquiryRepository) Create(_ context.Context, inquiry *models.Inquiry) error {
	ensureID(&inquiry.ID)
	ensureTime(&inquiry.CreatedAt)
	r.inquiries.insert(inquiry.ID, *inquiry)
	return nil
}

func (r *MemoryInquiryRepository) UpdateStatus(_ context.Context, id string, status models.InquiryStatus) (*models.Inquiry, error) {
	inquiry, ok := r.inquiries.update(id, func(i *models.Inquiry) { i.Status = status })
	if !ok {
		return nil, errs.NotFound("inquiry", id)
	}
	return &inquiry, nil
}

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders *memTable[models.Order]
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: newMemTable[models.Order]()}
}

func (r *MemoryOrderRepository) GetAll(context.Context) ([]models.Order, error) {
	return newestFirst(r.orders.list(nil)), nil
}

func (r *MemoryOrderRepository) GetByUser(_ context.Context, userID string) ([]models.Order, error) {
	return newestFirst(r.orders.list(func(o models.Order) bool { return o.UserID == userID })), nil
}

func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	order, ok := r.orders.get(id)
	if !ok {
		return nil, errs.NotFound("order", id)
	}
	return &order, nil
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	ensureID(&order.ID)
	ensureTime(&order.CreatedAt)
	order.UpdatedAt = order.CreatedAt
	r.orders.insert(order.ID, *order)
	return nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	order, ok := r.orders.update(id, func(o *models.Order) {
		o.Status = status
		o.UpdatedAt = time.Now().UTC()
	})
	if !ok {
		return nil, errs.NotFound("order", id)
	}
	return &order, nil
}
