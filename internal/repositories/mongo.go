package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/models"
)

const (
	usersCollection        = "users"
	otpsCollection         = "otps"
	categoriesCollection   = "categories"
	productsCollection     = "products"
	testimonialsCollection = "testimonials"
	inquiriesCollection    = "inquiries"
	ordersCollection       = "orders"
)

// ConnectToMongoDB dials uri, pings the primary and returns the named database.
func ConnectToMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client.Database(database), nil
}

// EnsureIndexes creates the unique and TTL indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		otpsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			// Mongo removes each OTP document once expiresAt has passed.
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "categoryId", Value: 1}}},
			{Keys: bson.D{{Key: "featured", Value: 1}}},
		},
		inquiriesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// NewMongoStore returns a Store over db. Expired OTPs are removed by the TTL index.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:        &MongoUserRepository{coll: db.Collection(usersCollection)},
		OTPs:         &MongoOTPRepository{coll: db.Collection(otpsCollection)},
		Categories:   &MongoCategoryRepository{coll: db.Collection(categoriesCollection)},
		Products:     &MongoProductRepository{coll: db.Collection(productsCollection)},
		Testimonials: &MongoTestimonialRepository{coll: db.Collection(testimonialsCollection)},
		Inquiries:    &MongoInquiryRepository{coll: db.Collection(inquiriesCollection)},
		Orders:       &MongoOrderRepository{coll: db.Collection(ordersCollection)},
		ExpiringOTPs: true,
		Close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

var (
	oldestFirstSort = options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	newestFirstSort = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
)

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		zap.L().Error("mongo find failed", zap.String("collection", coll.Name()), zap.Error(err))
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, entity, id string) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.NotFound(entity, id)
		}
		zap.L().Error("mongo find one failed", zap.String("collection", coll.Name()), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s %s: %w", entity, id, err)
	}
	return &out, nil
}

func matched(res *mongo.UpdateResult, err error, entity, id string) error {
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", entity, id, err)
	}
	if res.MatchedCount == 0 {
		return errs.NotFound(entity, id)
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, entity, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", entity, id, err)
	}
	if res.DeletedCount == 0 {
		return errs.NotFound(entity, id)
	}
	return nil
}

// MongoUserRepository is a MongoDB implementation of UserRepository.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	ensureID(&user.ID)
	ensureTime(&user.CreatedAt)
	user.Email = strings.ToLower(user.Email)
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.New(errs.ErrConflict, "email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return findOne[models.User](ctx, r.coll, bson.M{"email": email}, "user", email)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"_id": id}, "user", id)
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"passwordHash": passwordHash}})
	return matched(res, err, "user", id)
}

// MongoOTPRepository is a MongoDB implementation of OTPRepository.
type MongoOTPRepository struct {
	coll *mongo.Collection
}

func (r *MongoOTPRepository) Upsert(ctx context.Context, otp *models.OTP) error {
	otp.Email = strings.ToLower(otp.Email)
	ensureTime(&otp.CreatedAt)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"email": otp.Email}, otp, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (r *MongoOTPRepository) GetByEmail(ctx context.Context, email string) (*models.OTP, error) {
	email = strings.ToLower(email)
	return findOne[models.OTP](ctx, r.coll, bson.M{"email": email}, "otp", email)
}

func (r *MongoOTPRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"email": strings.ToLower(email)}); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// DeleteExpired is normally redundant with the TTL index, whose sweeper runs once a minute.
func (r *MongoOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired otps: %w", err)
	}
	return res.DeletedCount, nil
}

// MongoCategoryRepository is a MongoDB implementation of CategoryRepository.
type MongoCategoryRepository struct {
	coll *mongo.Collection
}

func (r *MongoCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, r.coll, bson.M{}, oldestFirstSort)
}

func (r *MongoCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return findOne[models.Category](ctx, r.coll, bson.M{"_id": id}, "category", id)
}

func (r *MongoCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	ensureID(&category.ID)
	ensureTime(&category.CreatedAt)
	if _, err := r.coll.InsertOne(ctx, category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *MongoCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": category.ID}, bson.M{"$set": bson.M{
		"name":        category.Name,
		"description": category.Description,
		"imagePath":   category.ImagePath,
	}})
	return matched(res, err, "category", category.ID)
}

func (r *MongoCategoryRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, "category", id)
}

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	coll *mongo.Collection
}

func (r *MongoProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if filter.CategoryID != "" {
		query["categoryId"] = filter.CategoryID
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	if filter.Verified != nil {
		query["verified"] = *filter.Verified
	}
	return findAll[models.Product](ctx, r.coll, query, oldestFirstSort)
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return findOne[models.Product](ctx, r.coll, bson.M{"_id": id}, "product", id)
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	ensureID(&product.ID)
	ensureTime(&product.CreatedAt)
	product.UpdatedAt = product.CreatedAt
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		zap.L().Error("failed to insert product", zap.String("component", "MongoProductRepository"), zap.Error(err))
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update replaces the editable fields. The counters are left to IncrementOrderCount.
func (r *MongoProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": product.ID}, bson.M{"$set": bson.M{
		"name":           product.Name,
		"supplierName":   product.SupplierName,
		"tieredPricing":  product.TieredPricing,
		"moq":            product.MOQ,
		"categoryId":     product.CategoryID,
		"imagePath":      product.ImagePath,
		"verified":       product.Verified,
		"featured":       product.Featured,
		"description":    product.Description,
		"specifications": product.Specifications,
		"updatedAt":      product.UpdatedAt,
	}})
	return matched(res, err, "product", product.ID)
}

func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, "product", id)
}

func (r *MongoProductRepository) CountByCategory(ctx context.Context, categoryID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"categoryId": categoryID})
	if err != nil {
		return 0, fmt.Errorf("failed to count products of category %s: %w", categoryID, err)
	}
	return n, nil
}

func (r *MongoProductRepository) Search(ctx context.Context, query string) ([]models.Product, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": []bson.M{
		{"name": pattern},
		{"description": pattern},
		{"supplierName": pattern},
	}}
	return findAll[models.Product](ctx, r.coll, filter, oldestFirstSort)
}

func (r *MongoProductRepository) IncrementOrderCount(ctx context.Context, id string, by int) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"orderCount": by}})
	return matched(res, err, "product", id)
}

// MongoTestimonialRepository is a MongoDB implementation of TestimonialRepository.
type MongoTestimonialRepository struct {
	coll *mongo.Collection
}

func (r *MongoTestimonialRepository) GetAll(ctx context.Context) ([]models.Testimonial, error) {
	return findAll[models.Testimonial](ctx, r.coll, bson.M{}, oldestFirstSort)
}

func (r *MongoTestimonialRepository) GetByID(ctx context.Context, id string) (*models.Testimonial, error) {
	return findOne[models.Testimonial](ctx, r.coll, bson.M{"_id": id}, "testimonial", id)
}

func (r *MongoTestimonialRepository) Create(ctx context.Context, testimonial *models.Testimonial) error {
	ensureID(&testimonial.ID)
	ensureTime(&testimonial.CreatedAt)
	if _, err := r.coll.InsertOne(ctx, testimonial); err != nil {
		return fmt.Errorf("failed to create testimonial: %w", err)
	}
	return nil
}

func (r *MongoTestimonialRepository) Update(ctx context.Context, testimonial *models.Testimonial) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": testimonial.ID}, bson.M{"$set": bson.M{
		"text":   testimonial.Text,
		"author": testimonial.Author,
	}})
	return matched(res, err, "testimonial", testimonial.ID)
}

func (r *MongoTestimonialRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, "testimonial", id)
}

// MongoInquiryRepository is a MongoDB implementation of InquiryRepository.
type MongoInquiryRepository struct {
	coll *mongo.Collection
}

func (r *MongoInquiryRepository) GetAll(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return findAll[models.Inquiry](ctx, r.coll, query, newestFirstSort)
}

func (r *MongoInquiryRepository) GetByID(ctx context.Context, id string) (*models.Inquiry, error) {
	return findOne[models.Inquiry](ctx, r.coll, bson.M{"_id": id}, "inquiry", id)
}

func (r *MongoInquiryRepository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	ensureID(&inquiry.ID)
	ensureTime(&inquiry.CreatedAt)
	if _, err := r.coll.InsertOne(ctx, inquiry); err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	return nil
}

func (r *MongoInquiryRepository) UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) (*models.Inquiry, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var inquiry models.Inquiry
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}}, opts).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.NotFound("inquiry", id)
		}
		return nil, fmt.Errorf("failed to update inquiry %s: %w", id, err)
	}
	return &inquiry, nil
}

// MongoOrderRepository is a MongoDB implementation of OrderRepository.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

func (r *MongoOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	return findAll[models.Order](ctx, r.coll, bson.M{}, newestFirstSort)
}

func (r *MongoOrderRepository) GetByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return findAll[models.Order](ctx, r.coll, bson.M{"userId": userID}, newestFirstSort)
}

func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return findOne[models.Order](ctx, r.coll, bson.M{"_id": id}, "order", id)
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	ensureID(&order.ID)
	ensureTime(&order.CreatedAt)
	order.UpdatedAt = order.CreatedAt
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	var order models.Order
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.NotFound("order", id)
		}
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}
	return &order, nil
}
