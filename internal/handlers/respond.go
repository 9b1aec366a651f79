package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/logger"
	"tradehub/internal/models"
)

// Guards are the route-level middlewares protected endpoints are mounted behind.
type Guards struct {
	Auth  fiber.Handler
	Admin fiber.Handler
}

// writeError renders err as {"error": message}. Internal details are logged, not returned.
func writeError(c *fiber.Ctx, err error) error {
	status := errs.StatusCode(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	if status == fiber.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", logger.RequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	body := fiber.Map{"error": errs.Message(err)}
	if fields := errs.Fields(err); len(fields) > 0 {
		body["fields"] = fields
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the fiber.Config error handler for errors returned by middleware and handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errs.New(errs.ErrValidation, "invalid request body")
	}
	return nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// formImage returns the optional "image" upload of a multipart request.
func formImage(c *fiber.Ctx) (*multipart.FileHeader, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return nil, nil
		}
		return nil, errs.New(errs.ErrValidation, "invalid multipart form")
	}
	return fh, nil
}

// bindPayload fills p from a JSON body or from multipart form fields.
func bindPayload(c *fiber.Ctx, p models.AdminPayload) (*multipart.FileHeader, error) {
	if !isMultipart(c) {
		return nil, parseBody(c, p)
	}

	switch v := p.(type) {
	case *models.ProductPayload:
		if err := bindProductForm(c, v); err != nil {
			return nil, err
		}
	default:
		if err := parseBody(c, p); err != nil {
			return nil, err
		}
	}
	return formImage(c)
}

// bindProductForm reads product fields from a multipart form. Nested fields arrive as JSON strings.
func bindProductForm(c *fiber.Ctx, p *models.ProductPayload) error {
	p.Name = c.FormValue("name")
	p.SupplierName = c.FormValue("supplierName")
	p.CategoryID = c.FormValue("categoryId")
	p.Description = c.FormValue("description")
	p.Verified = formBool(c.FormValue("verified"))
	p.Featured = formBool(c.FormValue("featured"))

	if v := c.FormValue("moq"); v != "" {
		moq, err := strconv.Atoi(v)
		if err != nil {
			return errs.Validation("Validation failed", map[string]string{"moq": "moq must be a whole number"})
		}
		p.MOQ = moq
	}
	if v := c.FormValue("tieredPricing"); v != "" {
		if err := json.Unmarshal([]byte(v), &p.TieredPricing); err != nil {
			return errs.Validation("Validation failed", map[string]string{"tieredPricing": "tieredPricing must be a JSON array"})
		}
	}
	if v := c.FormValue("specifications"); v != "" {
		if err := json.Unmarshal([]byte(v), &p.Specifications); err != nil {
			return errs.Validation("Validation failed", map[string]string{"specifications": "specifications must be a JSON object"})
		}
	}
	return nil
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b || v == "on"
}

func deleted(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"deleted": true})
}
