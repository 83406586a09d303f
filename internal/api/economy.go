package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"loungehub/internal/economy"
	"loungehub/internal/models"
)

type SendGiftRequest struct {
	GiftID        string `json:"giftId"`
	RecipientID   string `json:"recipientId"`
	RecipientName string `json:"recipientName"`
}

type AdjustCoinsRequest struct {
	Amount int `json:"amount"`
}

type PostMomentRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// LeaderboardEntry is one row of the charms leaderboard.
type LeaderboardEntry struct {
	ID     string `json:"id"`
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Level  int    `json:"level"`
	Charms int    `json:"charms"`
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	user := s.economy.CurrentUser()
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	return c.JSON(fiber.Map{"profile": user})
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var profile models.Profile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if profile.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Display name is required",
		})
	}

	err := s.economy.UpdateProfile(c.Context(), profile)
	if errors.Is(err, economy.ErrMissingProfileID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Profile ID is required",
		})
	}
	if err != nil {
		s.logger.Error("Failed to update profile", "id", profile.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update profile",
		})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (s *Server) handleLookupProfile(c *fiber.Ctx) error {
	profile, err := s.economy.Lookup(c.Context(), c.Params("id"))
	if errors.Is(err, economy.ErrProfileNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No user found with that ID",
		})
	}
	if err != nil {
		s.logger.Error("Profile lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to look up profile",
		})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (s *Server) handleListGifts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"gifts": models.Gifts})
}

func (s *Server) handleSendGift(c *fiber.Ctx) error {
	var req SendGiftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	gift, ok := models.GiftByID(req.GiftID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown gift",
		})
	}
	if req.RecipientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Recipient ID is required",
		})
	}

	sent, err := s.economy.SendGift(c.Context(), gift, req.RecipientID, req.RecipientName)
	if errors.Is(err, economy.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	if err != nil {
		s.logger.Error("Gift send failed", "gift", gift.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send gift",
		})
	}
	if !sent {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": fmt.Sprintf("Need %d coins for %s!", gift.Cost, gift.Name),
		})
	}

	return c.JSON(fiber.Map{
		"sent":    true,
		"profile": s.economy.CurrentUser(),
	})
}

func (s *Server) handleAdjustCoins(c *fiber.Ctx) error {
	var req AdjustCoinsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ok, err := s.economy.AdjustCoins(c.Context(), req.Amount)
	if errors.Is(err, economy.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	if err != nil {
		s.logger.Error("Coin adjustment failed", "amount", req.Amount, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to adjust coins",
		})
	}
	if !ok {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "Not enough coins!",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"coins":   s.economy.CurrentUser().Coins,
	})
}

func (s *Server) handleClaimDaily(c *fiber.Ctx) error {
	claimed, err := s.economy.ClaimDaily(c.Context())
	if errors.Is(err, economy.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	if err != nil {
		s.logger.Error("Daily claim failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to claim daily reward",
		})
	}

	resp := fiber.Map{"claimed": claimed}
	if user := s.economy.CurrentUser(); user != nil {
		resp["coins"] = user.Coins
	}
	return c.JSON(resp)
}

func (s *Server) handleNotification(c *fiber.Ctx) error {
	n, err := s.economy.Notification(c.Context())
	if errors.Is(err, economy.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	if err != nil {
		s.logger.Error("Notification read failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read notification",
		})
	}
	return c.JSON(fiber.Map{"notification": n})
}

func (s *Server) handlePostMoment(c *fiber.Ctx) error {
	var req PostMomentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Moment text is required",
		})
	}

	profile, err := s.economy.PostMoment(c.Context(), req.Text, req.Image)
	if errors.Is(err, economy.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No active session",
		})
	}
	if err != nil {
		s.logger.Error("Failed to post moment", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to post moment",
		})
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (s *Server) handleLeaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	profiles, err := s.economy.Leaderboard(c.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to fetch leaderboard", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch leaderboard",
		})
	}

	entries := make([]LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		entries = append(entries, LeaderboardEntry{
			ID:     p.ID,
			Rank:   i + 1,
			Name:   p.Name,
			Avatar: p.Avatar,
			Level:  p.Level,
			Charms: p.Charms,
		})
	}
	return c.JSON(fiber.Map{
		"entries": entries,
		"total":   len(entries),
	})
}
