package models

import "time"

// Event types published to the economy stream.
const (
	EventGiftSent      = "gift_sent"
	EventCoinsAdjusted = "coins_adjusted"
)

// EconomyEvent is the wire format for the economy-events topic. Gift events
// carry the full transfer; coin adjustments only the delta.
type EconomyEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProfileID   string    `json:"profileId"`
	Amount      int       `json:"amount,omitempty"`
	GiftID      string    `json:"giftId,omitempty"`
	RecipientID string    `json:"recipientId,omitempty"`
	Cost        int       `json:"cost,omitempty"`
	XPValue     int       `json:"xpValue,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LedgerEntry is a gift event as persisted by the ledger worker.
type LedgerEntry struct {
	EventID     string    `json:"event_id" db:"event_id"`
	GiftID      string    `json:"gift_id" db:"gift_id"`
	SenderID    string    `json:"sender_id" db:"sender_id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	Cost        int       `json:"cost" db:"cost"`
	XPValue     int       `json:"xp_value" db:"xp_value"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
