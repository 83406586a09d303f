package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jwtware "github.com/gofiber/jwt/v3"

	"loungehub/internal/ai"
	"loungehub/internal/config"
	"loungehub/internal/economy"
)

type Server struct {
	app     *fiber.App
	cfg     *config.Config
	economy *economy.Store
	ai      ai.Client
	logger  *slog.Logger
}

func NewServer(cfg *config.Config, econ *economy.Store, aiClient ai.Client) *Server {
	app := fiber.New()

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))

	server := &Server{
		app:     app,
		cfg:     cfg,
		economy: econ,
		ai:      aiClient,
		logger:  slog.Default(),
	}

	// Routes
	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	// Public routes
	api.Post("/signup", s.handleSignup)
	api.Post("/login", s.handleLogin)
	api.Post("/guest", s.handleGuest)

	// Protected routes
	protected := api.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(s.cfg.JWT.Secret),
	}))
	protected.Get("/profile", s.handleGetProfile)
	protected.Put("/profile", s.handleUpdateProfile)
	protected.Get("/profiles/:id", s.handleLookupProfile)
	protected.Get("/gifts", s.handleListGifts)
	protected.Post("/gifts/send", s.handleSendGift)
	protected.Post("/coins/adjust", s.handleAdjustCoins)
	protected.Post("/daily/claim", s.handleClaimDaily)
	protected.Get("/notification", s.handleNotification)
	protected.Post("/moments", s.handlePostMoment)
	protected.Post("/avatar/generate", s.handleGenerateAvatar)
	protected.Post("/companion/reply", s.handleCompanionReply)
	protected.Get("/leaderboard", s.handleLeaderboard)
	protected.Post("/logout", s.handleLogout)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}
