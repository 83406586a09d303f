package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"loungehub/internal/economy"
	"loungehub/internal/models"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GuestRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type AuthResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"type"`
	Profile   models.Profile `json:"profile"`
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Display name is required",
		})
	}

	s.logger.Info("Registration attempt", "email", req.Email)

	profile, err := s.economy.Register(c.Context(), req.Name, req.Avatar, req.Email, req.Password)
	if errors.Is(err, economy.ErrAccountExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Account already exists",
		})
	}
	if err != nil {
		s.logger.Error("Registration failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	return s.respondWithToken(c, *profile)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	s.logger.Info("Authentication attempt", "email", req.Email)

	profile, err := s.economy.Login(c.Context(), req.Email, req.Password)
	if errors.Is(err, economy.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err != nil {
		s.logger.Error("Authentication error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Authentication service error",
		})
	}

	s.logger.Info("User successfully authenticated", "email", req.Email, "id", profile.ID)

	return s.respondWithToken(c, *profile)
}

// handleGuest creates a throwaway profile with no account record behind it.
func (s *Server) handleGuest(c *fiber.Ctx) error {
	var req GuestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Display name is required",
		})
	}

	profile, err := s.economy.Register(c.Context(), req.Name, req.Avatar, "", "")
	if err != nil {
		s.logger.Error("Guest registration failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create guest profile",
		})
	}

	return s.respondWithToken(c, *profile)
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	s.economy.Logout()
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) respondWithToken(c *fiber.Ctx, profile models.Profile) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  profile.ID,
		"name": profile.Name,
		"exp":  time.Now().Add(s.cfg.JWT.Expiration).Unix(),
		"iat":  time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(AuthResponse{
		Token:     tokenString,
		TokenType: "Bearer",
		Profile:   profile,
	})
}
