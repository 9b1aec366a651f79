package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"tradehub/internal/config"
	"tradehub/internal/handlers"
	"tradehub/internal/logger"
	"tradehub/internal/mail"
	"tradehub/internal/middleware"
	"tradehub/internal/repositories"
	"tradehub/internal/services"
	"tradehub/internal/storage"
)

// UploadsPrefix is the URL path locally stored images are served from.
const UploadsPrefix = "/uploads"

// Deps is everything the HTTP application is assembled from.
type Deps struct {
	Config    *config.Config
	Store     *repositories.Store
	Images    storage.ImageStore
	Mailer    mail.Sender
	Templates *mail.Templates
	// Publisher may be nil when no broker is configured.
	Publisher services.EventPublisher
	Log       *zap.Logger
	// Clock overrides the auth service time source when set.
	Clock func() time.Time
}

// NewApp wires services, handlers and middleware into a ready to listen Fiber app.
func NewApp(d Deps) *fiber.App {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = zap.L()
	}

	authService := services.NewAuthService(d.Store.Users, d.Store.OTPs, d.Mailer, d.Templates, services.AuthConfig{
		JWTSecret:            cfg.JWTSecret,
		TokenTTL:             cfg.JWTTTL,
		OTPTTL:               cfg.OTPTTL,
		ResetRequestsPerHour: cfg.ResetRequestsPerHour,
	})
	if d.Clock != nil {
		authService.WithClock(d.Clock)
	}
	categoryService := services.NewCategoryService(d.Store.Categories, d.Store.Products, d.Images)
	productService := services.NewProductService(d.Store.Products, d.Store.Categories, d.Images)
	testimonialService := services.NewTestimonialService(d.Store.Testimonials)
	contentService := services.NewContentService(categoryService, productService, testimonialService)
	inquiryService := services.NewInquiryService(d.Store.Inquiries, d.Store.Products, d.Publisher)
	orderService := services.NewOrderService(d.Store.Orders, d.Store.Products, d.Publisher)

	app := fiber.New(fiber.Config{
		AppName:      "tradehub",
		ErrorHandler: handlers.ErrorHandler,
		// Leaves headroom above the image limit so oversized uploads get a validation error.
		BodyLimit: storage.MaxImageSize + 1<<20,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.RequestLogger(log))
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if cfg.UploadDriver == "local" {
		app.Static(UploadsPrefix, cfg.UploadDir)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"store":  cfg.StoreDriver,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	guards := handlers.Guards{
		Auth:  middleware.AuthRequired(authService),
		Admin: middleware.AdminOnly(cfg.AdminEmails),
	}
	sensitive := limiter.New(limiter.Config{
		Max:        authRateLimit(cfg),
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests, try again later"})
		},
	})

	api := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(api, guards, sensitive)
	handlers.NewCatalogHandler(categoryService, productService, testimonialService, contentService).RegisterRoutes(api, guards)
	handlers.NewInquiryHandler(inquiryService).RegisterRoutes(api, guards)
	handlers.NewOrderHandler(orderService).RegisterRoutes(api, guards)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route not found"})
	})

	return app
}

func authRateLimit(cfg *config.Config) int {
	if cfg.AuthRateLimit <= 0 {
		return 20
	}
	return cfg.AuthRateLimit
}
