package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"tradehub/internal/errs"
	"tradehub/internal/models"
)

// OpenGORM connects to a postgres or sqlite database and migrates the schema.
func OpenGORM(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.OTP{},
		&models.Category{},
		&models.Product{},
		&models.Testimonial{},
		&models.Inquiry{},
		&models.Order{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// NewGORMStore returns a Store whose repositories share db.
func NewGORMStore(db *gorm.DB) *Store {
	return &Store{
		Users:        &GORMUserRepository{db: db},
		OTPs:         &GORMOTPRepository{db: db},
		Categories:   &GORMCategoryRepository{db: db},
		Products:     &GORMProductRepository{db: db},
		Testimonials: &GORMTestimonialRepository{db: db},
		Inquiries:    &GORMInquiryRepository{db: db},
		Orders:       &GORMOrderRepository{db: db},
		Close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func gormError(err error, entity, id string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NotFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.New(errs.ErrConflict, "%s already exists", entity)
	default:
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
}

// affected turns a zero-row write into a not-found error.
func affected(res *gorm.DB, entity, id string) error {
	if res.Error != nil {
		return gormError(res.Error, entity, id)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound(entity, id)
	}
	return nil
}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	ensureID(&user.ID)
	ensureTime(&user.CreatedAt)
	user.Email = strings.ToLower(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.New(errs.ErrConflict, "email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, gormError(err, "user", email)
	}
	return &user, nil
}

func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "user", id)
	}
	return &user, nil
}

func (r *GORMUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	return affected(res, "user", id)
}

// GORMOTPRepository is a GORM implementation of OTPRepository.
type GORMOTPRepository struct {
	db *gorm.DB
}

func (r *GORMOTPRepository) Upsert(ctx context.Context, otp *models.OTP) error {
	otp.Email = strings.ToLower(otp.Email)
	ensureTime(&otp.CreatedAt)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(otp).Error
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (r *GORMOTPRepository) GetByEmail(ctx context.Context, email string) (*models.OTP, error) {
	var otp models.OTP
	if err := r.db.WithContext(ctx).First(&otp, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, gormError(err, "otp", email)
	}
	return &otp, nil
}

func (r *GORMOTPRepository) Delete(ctx context.Context, email string) error {
	if err := r.db.WithContext(ctx).Delete(&models.OTP{}, "email = ?", strings.ToLower(email)).Error; err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

func (r *GORMOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.OTP{}, "expires_at <= ?", now)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired otps: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	db *gorm.DB
}

func (r *GORMCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to get all categories: %w", err)
	}
	return categories, nil
}

func (r *GORMCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "category", id)
	}
	return &category, nil
}

func (r *GORMCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	ensureID(&category.ID)
	ensureTime(&category.CreatedAt)
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *GORMCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", category.ID).
		Select("name", "description", "image_path").Updates(category)
	return affected(res, "category", category.ID)
}

func (r *GORMCategoryRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id), "category", id)
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

func (r *GORMProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Order("created_at asc")
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Featured != nil {
		q = q.Where("featured = ?", *filter.Featured)
	}
	if filter.Verified != nil {
		q = q.Where("verified = ?", *filter.Verified)
	}

	products := []models.Product{}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "product", id)
	}
	return &product, nil
}

func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	ensureID(&product.ID)
	ensureTime(&product.CreatedAt)
	product.UpdatedAt = product.CreatedAt
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", product.ID).
		Select("*").Omit("id", "created_at", "review_count", "order_count").Updates(product)
	return affected(res, "product", product.ID)
}

func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id), "product", id)
}

func (r *GORMProductRepository) CountByCategory(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products of category %s: %w", categoryID, err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *GORMProductRepository) Search(ctx context.Context, query string) ([]models.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	products := []models.Product{}
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(supplier_name) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern).
		Order("created_at asc").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (r *GORMProductRepository) IncrementOrderCount(ctx context.Context, id string, by int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		UpdateColumn("order_count", gorm.Expr("order_count + ?", by))
	return affected(res, "product", id)
}

// GORMTestimonialRepository is a GORM implementation of TestimonialRepository.
type GORMTestimonialRepository struct {
	db *gorm.DB
}

func (r *GORMTestimonialRepository) GetAll(ctx context.Context) ([]models.Testimonial, error) {
	testimonials := []models.Testimonial{}
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&testimonials).Error; err != nil {
		return nil, fmt.Errorf("failed to get all testimonials: %w", err)
	}
	return testimonials, nil
}

func (r *GORMTestimonialRepository) GetByID(ctx context.Context, id string) (*models.Testimonial, error) {
	var testimonial models.Testimonial
	if err := r.db.WithContext(ctx).First(&testimonial, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "testimonial", id)
	}
	return &testimonial, nil
}

func (r *GORMTestimonialRepository) Create(ctx context.Context, testimonial *models.Testimonial) error {
	ensureID(&testimonial.ID)
	ensureTime(&testimonial.CreatedAt)
	if err := r.db.WithContext(ctx).Create(testimonial).Error; err != nil {
		return fmt.Errorf("failed to create testimonial: %w", err)
	}
	return nil
}

func (r *GORMTestimonialRepository) Update(ctx context.Context, testimonial *models.Testimonial) error {
	res := r.db.WithContext(ctx).Model(&models.Testimonial{}).Where("id = ?", testimonial.ID).
		Select("text", "author").Updates(testimonial)
	return affected(res, "testimonial", testimonial.ID)
}

func (r *GORMTestimonialRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Testimonial{}, "id = ?", id), "testimonial", id)
}

// GORMInquiryRepository is a GORM implementation of InquiryRepository.
type GORMInquiryRepository struct {
	db *gorm.DB
}

func (r *GORMInquiryRepository) GetAll(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	q := r.db.WithContext(ctx).Order("created_at desc")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	inquiries := []models.Inquiry{}
	if err := q.Find(&inquiries).Error; err != nil {
		return nil, fmt.Errorf("failed to get inquiries: %w", err)
	}
	return inquiries, nil
}

func (r *GORMInquiryRepository) GetByID(ctx context.Context, id string) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := r.db.WithContext(ctx).First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "inquiry", id)
	}
	return &inquiry, nil
}

func (r *GORMInquiryRepository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	ensureID(&inquiry.ID)
	ensureTime(&inquiry.CreatedAt)
	if err := r.db.WithContext(ctx).Create(inquiry).Error; err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	return nil
}

func (r *GORMInquiryRepository) UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) (*models.Inquiry, error) {
	res := r.db.WithContext(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Update("status", status)
	if err := affected(res, "inquiry", id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) GetByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders of user %s: %w", userID, err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "order", id)
	}
	return &order, nil
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	ensureID(&order.ID)
	ensureTime(&order.CreatedAt)
	order.UpdatedAt = order.CreatedAt
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if err := affected(res, "order", id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
