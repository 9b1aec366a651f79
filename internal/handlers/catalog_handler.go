package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/services"
)

// CatalogHandler serves categories, products, testimonials and search.
// Reads are public; writes go through the admin content service.
type CatalogHandler struct {
	categories   *services.CategoryService
	products     *services.ProductService
	testimonials *services.TestimonialService
	content      *services.ContentService
}

func NewCatalogHandler(categories *services.CategoryService, products *services.ProductService, testimonials *services.TestimonialService, content *services.ContentService) *CatalogHandler {
	return &CatalogHandler{
		categories:   categories,
		products:     products,
		testimonials: testimonials,
		content:      content,
	}
}

// RegisterRoutes registers the catalog routes.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	router.Get("/search", h.HandleSearch)

	categories := router.Group("/categories")
	categories.Get("/", h.HandleListCategories)
	categories.Get("/:id", h.HandleGetCategory)
	h.registerWrites(categories, guards, models.KindCategory)

	products := router.Group("/products")
	products.Get("/", h.HandleListProducts)
	products.Get("/featured", h.HandleFeaturedProducts)
	products.Get("/:id", h.HandleGetProduct)
	products.Get("/:id/price", h.HandleProductPrice)
	h.registerWrites(products, guards, models.KindProduct)

	testimonials := router.Group("/testimonials")
	testimonials.Get("/", h.HandleListTestimonials)
	testimonials.Get("/:id", h.HandleGetTestimonial)
	h.registerWrites(testimonials, guards, models.KindTestimonial)
}

func (h *CatalogHandler) registerWrites(group fiber.Router, guards Guards, kind models.EntityKind) {
	group.Post("/", guards.Auth, guards.Admin, h.create(kind))
	group.Put("/:id", guards.Auth, guards.Admin, h.update(kind))
	group.Delete("/:id", guards.Auth, guards.Admin, h.delete(kind))
}

func newPayload(kind models.EntityKind) models.AdminPayload {
	switch kind {
	case models.KindCategory:
		return &models.CategoryPayload{}
	case models.KindProduct:
		return &models.ProductPayload{}
	default:
		return &models.TestimonialPayload{}
	}
}

func (h *CatalogHandler) create(kind models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := newPayload(kind)
		image, err := bindPayload(c, payload)
		if err != nil {
			return writeError(c, err)
		}
		created, err := h.content.Create(c.UserContext(), payload, image)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

func (h *CatalogHandler) update(kind models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := newPayload(kind)
		image, err := bindPayload(c, payload)
		if err != nil {
			return writeError(c, err)
		}
		updated, err := h.content.Update(c.UserContext(), c.Params("id"), payload, image)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(updated)
	}
}

func (h *CatalogHandler) delete(kind models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.content.Delete(c.UserContext(), kind, c.Params("id")); err != nil {
			return writeError(c, err)
		}
		return deleted(c)
	}
}

func (h *CatalogHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(categories)
}

func (h *CatalogHandler) HandleGetCategory(c *fiber.Ctx) error {
	category, err := h.categories.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(category)
}

// HandleListProducts supports optional categoryId, featured and verified query filters.
func (h *CatalogHandler) HandleListProducts(c *fiber.Ctx) error {
	filter := models.ProductFilter{CategoryID: c.Query("categoryId")}
	var err error
	if filter.Featured, err = queryBool(c, "featured"); err != nil {
		return writeError(c, err)
	}
	if filter.Verified, err = queryBool(c, "verified"); err != nil {
		return writeError(c, err)
	}

	products, err := h.products.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func (h *CatalogHandler) HandleFeaturedProducts(c *fiber.Ctx) error {
	products, err := h.products.Featured(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func (h *CatalogHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

func (h *CatalogHandler) HandleProductPrice(c *fiber.Ctx) error {
	qty, err := strconv.Atoi(c.Query("qty"))
	if err != nil {
		return writeError(c, errs.Validation("Validation failed", map[string]string{"qty": "qty must be a whole number"}))
	}
	quote, err := h.products.PriceForQuantity(c.UserContext(), c.Params("id"), qty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(quote)
}

func (h *CatalogHandler) HandleSearch(c *fiber.Ctx) error {
	result, err := h.products.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

func (h *CatalogHandler) HandleListTestimonials(c *fiber.Ctx) error {
	testimonials, err := h.testimonials.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(testimonials)
}

func (h *CatalogHandler) HandleGetTestimonial(c *fiber.Ctx) error {
	testimonial, err := h.testimonials.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(testimonial)
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.Validation("Validation failed", map[string]string{key: key + " must be true or false"})
	}
	return &v, nil
}
