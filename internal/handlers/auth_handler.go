package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tradehub/internal/middleware"
	"tradehub/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the authentication routes. sensitive is applied to
// endpoints that are attractive to credential stuffing.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, guards Guards, sensitive fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", sensitive, h.HandleLogin)
	router.Post("/forgot-password", sensitive, h.HandleForgotPassword)
	router.Post("/reset-password/verify", sensitive, h.HandleVerifyOTP)
	router.Post("/reset-password", sensitive, h.HandleResetPassword)
	router.Get("/me", guards.Auth, h.HandleMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}

	result, err := h.authService.Register(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword answers identically whether or not the email is registered.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "If an account exists for that email, a reset code has been sent.",
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *AuthHandler) HandleVerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.authService.VerifyOTP(c.UserContext(), req.Email, req.OTP); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.authService.ResetPassword(c.UserContext(), req.Email, req.OTP, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password has been reset."})
}

func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}
