package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"loungehub/internal/economy"
)

type GenerateAvatarRequest struct {
	Description string `json:"description"`
}

// handleGenerateAvatar charges the avatar fee up front, asks the image
// model for a portrait and refunds the fee if generation fails.
func (s *Server) handleGenerateAvatar(c *fiber.Ctx) error {
	var req GenerateAvatarRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Avatar description is required",
		})
	}

	cost := s.cfg.Economy.AvatarCost
	ok, err := s.economy.AdjustCoins(c.Context(), -cost)
	if errors.Is(err, economy.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	if err != nil {
		s.logger.Error("Failed to charge avatar fee", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate avatar",
		})
	}
	if !ok {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "Not enough coins!",
		})
	}

	avatar, err := s.ai.GenerateAvatar(c.Context(), req.Description)
	if err != nil {
		s.logger.Error("Avatar generation failed, refunding fee", "error", err)
		if _, refundErr := s.economy.AdjustCoins(c.Context(), cost); refundErr != nil {
			s.logger.Error("Avatar fee refund failed", "error", refundErr)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Avatar generation is unavailable right now",
		})
	}

	user := s.economy.CurrentUser()
	if user != nil {
		user.Avatar = avatar
		if err := s.economy.UpdateProfile(c.Context(), *user); err != nil {
			s.logger.Error("Failed to persist generated avatar", "error", err)
		}
	}

	return c.JSON(fiber.Map{
		"avatar":  avatar,
		"profile": s.economy.CurrentUser(),
	})
}
