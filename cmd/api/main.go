package main

import (
	"context"
	"log/slog"
	"os"

	"loungehub/internal/ai"
	"loungehub/internal/api"
	"loungehub/internal/config"
	"loungehub/internal/economy"
	"loungehub/internal/notify"
	"loungehub/internal/store"
	"loungehub/pkg/database"
	"loungehub/pkg/kafka"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize database clients
	db, err := database.NewClients(cfg.Database.URL, cfg.Redis.Addr)
	if err != nil {
		slog.Error("Failed to initialize database clients", "error", err)
		os.Exit(1)
	}
	defer db.DB.Close()
	slog.Info("✅ Connected to databases")

	if err := db.CreateKVTable(); err != nil {
		slog.Error("Failed to create kv_store table", "error", err)
		os.Exit(1)
	}
	if err := db.CreateLedgerTable(); err != nil {
		slog.Error("Failed to create gift_ledger table", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer
	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		slog.Error("Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	slog.Info("✅ Connected to Kafka")

	ctx := context.Background()

	// Wire the economy store over Postgres-backed KV storage
	econ := economy.NewStore(cfg, store.NewPostgresKV(db.DB), db.Redis, notify.NewRedisNotifier(db.Redis), producer)
	if err := econ.Init(ctx); err != nil {
		slog.Error("Failed to restore session state", "error", err)
		os.Exit(1)
	}

	// Initialize the Gemini client for avatar and text generation
	aiClient, err := ai.NewClient(ctx, cfg.Gemini)
	if err != nil {
		slog.Error("Failed to create Gemini client", "error", err)
		os.Exit(1)
	}

	// Create and start server
	server := api.NewServer(cfg, econ, aiClient)
	if err := server.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
