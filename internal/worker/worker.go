package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"loungehub/internal/config"
	"loungehub/internal/models"
	"loungehub/pkg/database"
)

// Worker drains the economy event topic and records every gift in the
// gift_ledger table.
type Worker struct {
	cfg      *config.Config
	db       *database.Clients
	consumer sarama.ConsumerGroup
	ready    chan bool
}

func NewWorker(cfg *config.Config, db *database.Clients, consumer sarama.ConsumerGroup) *Worker {
	slog.Info("Initializing ledger worker")
	return &Worker{
		cfg:      cfg,
		db:       db,
		consumer: consumer,
		ready:    make(chan bool),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.Topic}
	slog.Info("Starting ledger worker", "topics", topics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for err := range w.consumer.Errors() {
			slog.Error("Kafka consumer error received", "error", err)
		}
	}()

	go func() {
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				slog.Error("Error from consumer.Consume", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			// Reset the ready channel after a new session is created
			w.ready = make(chan bool)
		}
	}()

	<-w.ready
	slog.Info("Ledger worker ready")

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("Context cancelled; shutting down worker")
	}

	slog.Info("Ledger worker shutting down gracefully")
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	close(w.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := w.processEvent(message); err != nil {
			slog.Error("Failed to process economy event", "offset", message.Offset, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processEvent(msg *sarama.ConsumerMessage) error {
	var event models.EconomyEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.Error("JSON unmarshalling failed", "error", err, "raw", string(msg.Value))
		return fmt.Errorf("failed to parse economy event: %w", err)
	}

	if event.Type != models.EventGiftSent {
		slog.Info("Skipping non-gift event", "type", event.Type, "eventID", event.ID)
		return nil
	}

	var err error
	for attempt := 1; attempt <= w.cfg.Kafka.RetryMax; attempt++ {
		err = w.recordGift(event)
		if err == nil {
			break
		}
		slog.Error("Ledger insert failed", "eventID", event.ID, "attempt", attempt, "error", err)
		time.Sleep(w.cfg.Kafka.RetryBackoff)
	}
	if err != nil {
		return err
	}

	slog.Info("Gift recorded in ledger", "eventID", event.ID, "gift", event.GiftID, "sender", event.ProfileID)
	return nil
}

// recordGift inserts the gift into the ledger. Redelivered events hit the
// event_id primary key and are dropped by ON CONFLICT.
func (w *Worker) recordGift(event models.EconomyEvent) error {
	_, err := w.db.DB.Exec(
		`INSERT INTO gift_ledger (event_id, gift_id, sender_id, recipient_id, cost, xp_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id) DO NOTHING`,
		event.ID, event.GiftID, event.ProfileID, event.RecipientID, event.Cost, event.XPValue, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}
