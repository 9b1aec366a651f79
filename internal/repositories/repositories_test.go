package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradehub/internal/errs"
	"tradehub/internal/models"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenGORM("sqlite", filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	store := NewGORMStore(db)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

// forEachStore runs fn against every backend that needs no external service.
func forEachStore(t *testing.T, fn func(t *testing.T, store *Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func seedProducts(t *testing.T, ctx context.Context, store *Store) (string, []*models.Product) {
	t.Helper()
	category := &models.Category{Name: "Packaging"}
	require.NoError(t, store.Categories.Create(ctx, category))

	products := []*models.Product{
		{Name: "Eco-Friendly Jute Bags", SupplierName: "Green Pack Ltd", CategoryID: category.ID, Featured: true,
			TieredPricing: []models.TierPrice{{MinQty: 100, Price: 4}}, MOQ: 100},
		{Name: "Shipping Boxes", SupplierName: "BoxCo", Description: "Corrugated, 100% recycled", CategoryID: category.ID,
			TieredPricing: []models.TierPrice{{MinQty: 50, Price: 1}}, MOQ: 50},
		{Name: "Cotton Tees", SupplierName: "Thread & Co", CategoryID: "other",
			TieredPricing: []models.TierPrice{{MinQty: 10, Price: 3}}, MOQ: 10, Verified: true},
	}
	for i, p := range products {
		p.CreatedAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Products.Create(ctx, p))
		require.NotEmpty(t, p.ID)
	}
	return category.ID, products
}

func TestUserRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		user := &models.User{FirstName: "Ada", Email: "Ada@Example.com", PasswordHash: "hash", UserType: models.UserTypeBuyer}
		require.NoError(t, store.Users.Create(ctx, user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ada@example.com", user.Email)

		found, err := store.Users.GetByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		err = store.Users.Create(ctx, &models.User{Email: "ada@example.com"})
		assert.ErrorIs(t, err, errs.ErrConflict)

		require.NoError(t, store.Users.UpdatePassword(ctx, user.ID, "new-hash"))
		found, err = store.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", found.PasswordHash)

		assert.ErrorIs(t, store.Users.UpdatePassword(ctx, "missing", "x"), errs.ErrNotFound)
		_, err = store.Users.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestOTPRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, store.OTPs.Upsert(ctx, &models.OTP{Email: "A@example.com", Code: "111111", ExpiresAt: now.Add(time.Minute)}))
		require.NoError(t, store.OTPs.Upsert(ctx, &models.OTP{Email: "a@example.com", Code: "222222", ExpiresAt: now.Add(10 * time.Minute)}))
		require.NoError(t, store.OTPs.Upsert(ctx, &models.OTP{Email: "b@example.com", Code: "333333", ExpiresAt: now.Add(-time.Minute)}))

		otp, err := store.OTPs.GetByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "222222", otp.Code, "upsert replaces the previous code")

		n, err := store.OTPs.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = store.OTPs.GetByEmail(ctx, "b@example.com")
		assert.ErrorIs(t, err, errs.ErrNotFound)

		require.NoError(t, store.OTPs.Delete(ctx, "a@example.com"))
		require.NoError(t, store.OTPs.Delete(ctx, "a@example.com"))
		_, err = store.OTPs.GetByEmail(ctx, "a@example.com")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestProductRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		categoryID, products := seedProducts(t, ctx, store)

		found, err := store.Products.GetByID(ctx, products[0].ID)
		require.NoError(t, err)
		assert.Equal(t, products[0].TieredPricing, found.TieredPricing)

		all, err := store.Products.GetAll(ctx, models.ProductFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		featured := true
		list, err := store.Products.GetAll(ctx, models.ProductFilter{Featured: &featured})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, products[0].ID, list[0].ID)

		list, err = store.Products.GetAll(ctx, models.ProductFilter{CategoryID: categoryID})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		n, err := store.Products.CountByCategory(ctx, categoryID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, store.Products.IncrementOrderCount(ctx, products[1].ID, 1))
		require.NoError(t, store.Products.IncrementOrderCount(ctx, products[1].ID, 1))
		found, err = store.Products.GetByID(ctx, products[1].ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.OrderCount)

		found.Name = "Heavy Shipping Boxes"
		require.NoError(t, store.Products.Update(ctx, found))
		found, err = store.Products.GetByID(ctx, products[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "Heavy Shipping Boxes", found.Name)
		assert.Equal(t, 2, found.OrderCount, "update keeps the order count")

		require.NoError(t, store.Products.Delete(ctx, products[2].ID))
		_, err = store.Products.GetByID(ctx, products[2].ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.ErrorIs(t, store.Products.Delete(ctx, products[2].ID), errs.ErrNotFound)
	})
}

func TestProductSearch(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		_, products := seedProducts(t, ctx, store)

		tests := []struct {
			query string
			want  []string
		}{
			{"jute", []string{products[0].ID}},
			{"GREEN PACK", []string{products[0].ID}},
			{"recycled", []string{products[1].ID}},
			{"100%", []string{products[1].ID}},
			{"&", []string{products[2].ID}},
			{"_", nil},
			{"xyz123", nil},
		}
		for _, tt := range tests {
			found, err := store.Products.Search(ctx, tt.query)
			require.NoError(t, err, tt.query)
			var ids []string
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids, tt.query)
		}
	})
}

func TestInquiryAndOrderRepositories(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

		first := &models.Inquiry{ProductID: "p1", Name: "Ada", Email: "ada@example.com", Quantity: 100,
			Status: models.InquiryPending, CreatedAt: base}
		second := &models.Inquiry{ProductID: "p2", Name: "Bob", Email: "bob@example.com", Quantity: 200,
			Status: models.InquiryPending, CreatedAt: base.Add(time.Hour)}
		require.NoError(t, store.Inquiries.Create(ctx, first))
		require.NoError(t, store.Inquiries.Create(ctx, second))

		list, err := store.Inquiries.GetAll(ctx, models.InquiryFilter{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")

		updated, err := store.Inquiries.UpdateStatus(ctx, first.ID, models.InquiryContacted)
		require.NoError(t, err)
		assert.Equal(t, models.InquiryContacted, updated.Status)

		list, err = store.Inquiries.GetAll(ctx, models.InquiryFilter{Status: models.InquiryContacted})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, first.ID, list[0].ID)

		_, err = store.Inquiries.UpdateStatus(ctx, "missing", models.InquiryClosed)
		assert.ErrorIs(t, err, errs.ErrNotFound)

		order := &models.Order{UserID: "u1", Status: models.OrderPending, Total: 1000, CreatedAt: base,
			Items: []models.OrderItem{{ProductID: "p1", ProductName: "Jute Bags", Quantity: 250, UnitPrice: 4, LineTotal: 1000}}}
		require.NoError(t, store.Orders.Create(ctx, order))
		require.NoError(t, store.Orders.Create(ctx, &models.Order{UserID: "u2", Status: models.OrderPending, CreatedAt: base}))

		mine, err := store.Orders.GetByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, order.Items, mine[0].Items)

		shipped, err := store.Orders.UpdateStatus(ctx, order.ID, models.OrderShipped)
		require.NoError(t, err)
		assert.Equal(t, models.OrderShipped, shipped.Status)

		all, err := store.Orders.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestCategoryAndTestimonialRepositories(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()

		category := &models.Category{Name: "Textiles"}
		require.NoError(t, store.Categories.Create(ctx, category))
		category.Description = "Fabrics and garments"
		require.NoError(t, store.Categories.Update(ctx, category))
		found, err := store.Categories.GetByID(ctx, category.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fabrics and garments", found.Description)
		require.NoError(t, store.Categories.Delete(ctx, category.ID))
		assert.ErrorIs(t, store.Categories.Delete(ctx, category.ID), errs.ErrNotFound)

		testimonial := &models.Testimonial{Text: "Reliable suppliers", Author: "Ada"}
		require.NoError(t, store.Testimonials.Create(ctx, testimonial))
		all, err := store.Testimonials.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.ErrorIs(t, store.Testimonials.Update(ctx, &models.Testimonial{ID: "missing"}), errs.ErrNotFound)
	})
}

func TestCachedProductRepositoryFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryProductRepository()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	cached := NewCachedProductRepository(inner, client, time.Minute)

	product := &models.Product{Name: "Jute Bags", Featured: true, TieredPricing: []models.TierPrice{{MinQty: 1, Price: 2}}}
	require.NoError(t, cached.Create(ctx, product))

	found, err := cached.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jute Bags", found.Name)

	featured := true
	list, err := cached.GetAll(ctx, models.ProductFilter{Featured: &featured})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, cached.IncrementOrderCount(ctx, product.ID, 1))
	found, err = cached.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.OrderCount)

	_, err = cached.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
