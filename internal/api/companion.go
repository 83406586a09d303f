package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"loungehub/internal/ai"
)

const companionPromptTemplate = `You are playing "%s" with a human user. The user just said: "%s".
Respond as a competitive but fun AI player named Gemini-Bot. Keep it short and witty.
If the user sent a gift, be extremely grateful and maybe give them a "hint" (even if fake) or a compliment.`

type CompanionReplyRequest struct {
	Game    string `json:"game"`
	Message string `json:"message"`
}

// handleCompanionReply asks the text model for an in-game reply. Model
// failures degrade to the canned line rather than an error status; the bot
// always answers.
func (s *Server) handleCompanionReply(c *fiber.Ctx) error {
	var req CompanionReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}
	if req.Game == "" {
		req.Game = "Lounge Chat"
	}

	prompt := fmt.Sprintf(companionPromptTemplate, req.Game, req.Message)
	reply, err := s.ai.GenerateText(c.Context(), prompt)
	if err != nil {
		s.logger.Warn("Companion reply failed, using fallback", "error", err)
		reply = ai.FallbackReply
	}

	return c.JSON(fiber.Map{"reply": reply})
}
