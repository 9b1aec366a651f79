package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tradehub/internal/models"
	"tradehub/internal/services"
)

// InquiryHandler handles quote requests.
type InquiryHandler struct {
	service *services.InquiryService
}

func NewInquiryHandler(service *services.InquiryService) *InquiryHandler {
	return &InquiryHandler{service: service}
}

// RegisterRoutes registers the inquiry routes. Only submission is public.
func (h *InquiryHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	inquiries := router.Group("/inquiries")
	inquiries.Post("/", h.HandleSubmit)
	inquiries.Get("/", guards.Auth, guards.Admin, h.HandleList)
	inquiries.Get("/:id", guards.Auth, guards.Admin, h.HandleGet)
	inquiries.Patch("/:id/status", guards.Auth, guards.Admin, h.HandleUpdateStatus)
}

func (h *InquiryHandler) HandleSubmit(c *fiber.Ctx) error {
	var in services.InquiryInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	inquiry, err := h.service.Submit(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inquiry)
}

// HandleList accepts an optional ?status= filter.
func (h *InquiryHandler) HandleList(c *fiber.Ctx) error {
	filter := models.InquiryFilter{Status: models.InquiryStatus(c.Query("status"))}
	inquiries, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inquiries)
}

func (h *InquiryHandler) HandleGet(c *fiber.Ctx) error {
	inquiry, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inquiry)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *InquiryHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	inquiry, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), models.InquiryStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inquiry)
}
