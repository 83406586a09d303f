// Package economy owns the session profile, the public profile collection and
// every coin/xp/gift state transition. Operations are single read-check-write
// cycles mirrored straight to the injected KV store; there is no multi-step
// transaction and no rollback beyond the up-front balance checks.
package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"loungehub/internal/config"
	"loungehub/internal/models"
	"loungehub/internal/notify"
	"loungehub/internal/store"
)

var (
	ErrNoSession          = errors.New("economy: no active session")
	ErrInvalidCredentials = errors.New("economy: invalid credentials")
	ErrAccountExists      = errors.New("economy: account already exists")
	ErrProfileNotFound    = errors.New("economy: profile not found")
	ErrMissingProfileID   = errors.New("economy: profile id is required")
)

// Store is the economy and profile store. One instance serves the single
// active session; the mutex keeps handler goroutines from interleaving the
// read-check-write cycles, nothing more.
type Store struct {
	mu       sync.Mutex
	cfg      *config.Config
	kv       store.KV
	rdb      *redis.Client
	notifier notify.Notifier
	producer sarama.SyncProducer
	session  *models.Profile

	now func() time.Time
}

func NewStore(cfg *config.Config, kv store.KV, rdb *redis.Client, notifier notify.Notifier, producer sarama.SyncProducer) *Store {
	return &Store{
		cfg:      cfg,
		kv:       kv,
		rdb:      rdb,
		notifier: notifier,
		producer: producer,
		now:      time.Now,
	}
}

// Init restores the persisted session profile, if any, so a restart picks up
// where the last login left off. Legacy-shaped records get their defaults
// filled here, never rejected.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p models.Profile
	err := s.kv.Get(ctx, store.KeySessionUser, &p)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	p.Normalize()
	s.session = &p
	slog.Info("Restored session profile", "id", p.ID, "name", p.Name)
	return nil
}

// CurrentUser returns a copy of the active session profile, or nil.
func (s *Store) CurrentUser() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	c := cloneProfile(*s.session)
	return &c
}

// AdjustCoins applies a coin delta to the session profile. It is the sole
// gate for spending and earning: a delta that would push the balance negative
// is rejected before any mutation, with an insufficient-funds notification.
func (s *Store) AdjustCoins(ctx context.Context, amount int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustCoinsLocked(ctx, amount)
}

func (s *Store) adjustCoinsLocked(ctx context.Context, amount int) (bool, error) {
	if s.session == nil {
		return false, ErrNoSession
	}
	if s.session.Coins+amount < 0 {
		s.postLocked(ctx, models.Notification{Message: "Not enough coins!", Type: models.NotifyError})
		return false, nil
	}

	updated := cloneProfile(*s.session)
	updated.Coins += amount
	if err := s.updateProfileLocked(ctx, updated); err != nil {
		return false, err
	}

	if amount > 0 {
		s.postLocked(ctx, models.Notification{
			Message: fmt.Sprintf("Earned %d coins!", amount),
			Type:    models.NotifySuccess,
		})
	}
	s.publishLocked(models.EconomyEvent{
		ID:        uuid.NewString(),
		Type:      models.EventCoinsAdjusted,
		ProfileID: updated.ID,
		Amount:    amount,
		CreatedAt: s.now(),
	})
	return true, nil
}

// SendGift transfers a catalog gift from the session user to recipientID.
// The sender is charged the cost, credited the gift's xp and re-leveled in
// the same update. The recipient side only applies when the recipient exists
// in the public collection; a gift to an unknown ID still charges the sender
// and still counts as sent.
func (s *Store) SendGift(ctx context.Context, gift models.Gift, recipientID, recipientName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return false, ErrNoSession
	}
	if s.session.Coins < gift.Cost {
		s.postLocked(ctx, models.Notification{
			Message: fmt.Sprintf("Need %d coins for %s!", gift.Cost, gift.Name),
			Type:    models.NotifyError,
		})
		return false, nil
	}

	sender := cloneProfile(*s.session)
	sender.Coins -= gift.Cost
	sender.GiftsSent++
	sender.XP += gift.XPValue
	sender.Level = models.LevelForXP(sender.XP)
	if err := s.updateProfileLocked(ctx, sender); err != nil {
		return false, err
	}

	profiles, err := s.publicProfilesLocked(ctx)
	if err != nil {
		return false, err
	}
	if idx := findProfile(profiles, recipientID); idx >= 0 {
		r := &profiles[idx]
		r.GiftsReceived++
		r.Charms += models.CharmsForGift(gift)
		// Half the gift's xp, and no level recompute: the recipient's tier
		// only refreshes when they act themselves.
		r.XP += gift.XPValue / 2
		if r.GiftStats == nil {
			r.GiftStats = map[string]int{}
		}
		r.GiftStats[gift.ID]++
		if err := s.kv.Set(ctx, store.KeyPublicProfiles, profiles); err != nil {
			return false, err
		}
	}

	s.postLocked(ctx, models.Notification{
		Message: fmt.Sprintf("Sent %s to %s! (+%d XP)", gift.Icon, recipientName, gift.XPValue),
		Type:    models.NotifySuccess,
	})
	s.publishLocked(models.EconomyEvent{
		ID:          uuid.NewString(),
		Type:        models.EventGiftSent,
		ProfileID:   sender.ID,
		GiftID:      gift.ID,
		RecipientID: recipientID,
		Cost:        gift.Cost,
		XPValue:     gift.XPValue,
		CreatedAt:   s.now(),
	})
	return true, nil
}

// UpdateProfile replaces the stored copy of a profile by ID: the session copy
// when the ID matches the active user, and the public collection entry either
// way (insert when absent, overwrite in place when present). Field-level
// validation is the caller's job.
func (s *Store) UpdateProfile(ctx context.Context, p models.Profile) error {
	if p.ID == "" {
		return ErrMissingProfileID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProfileLocked(ctx, p)
}

func (s *Store) updateProfileLocked(ctx context.Context, p models.Profile) error {
	if s.session != nil && s.session.ID == p.ID {
		c := cloneProfile(p)
		s.session = &c
		if err := s.kv.Set(ctx, store.KeySessionUser, p); err != nil {
			return err
		}
	}

	profiles, err := s.publicProfilesLocked(ctx)
	if err != nil {
		return err
	}
	if idx := findProfile(profiles, p.ID); idx >= 0 {
		profiles[idx] = p
	} else {
		profiles = append(profiles, p)
	}
	return s.kv.Set(ctx, store.KeyPublicProfiles, profiles)
}

// Register creates a fresh profile with the starting balance and, when an
// email is given, records the account credentials. A guest registration skips
// the account map entirely. The new profile is logged in immediately.
func (s *Store) Register(ctx context.Context, name, avatar, email, password string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.NewProfile(name, avatar, s.cfg.Economy.StartingCoins)

	if email != "" {
		accounts, err := s.accountsLocked(ctx)
		if err != nil {
			return nil, err
		}
		if _, exists := accounts[email]; exists {
			return nil, ErrAccountExists
		}
		accounts[email] = models.Account{Password: password, Profile: p}
		if err := s.kv.Set(ctx, store.KeyAccounts, accounts); err != nil {
			return nil, err
		}
	}

	if err := s.loginProfileLocked(ctx, p); err != nil {
		return nil, err
	}
	c := cloneProfile(p)
	return &c, nil
}

// Login checks the credentials against the account map and establishes the
// stored profile as the active session.
func (s *Store) Login(ctx context.Context, email, password string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.accountsLocked(ctx)
	if err != nil {
		return nil, err
	}
	acct, ok := accounts[email]
	if !ok || acct.Password != password {
		return nil, ErrInvalidCredentials
	}

	if err := s.loginProfileLocked(ctx, acct.Profile); err != nil {
		return nil, err
	}
	c := cloneProfile(*s.session)
	return &c, nil
}

func (s *Store) loginProfileLocked(ctx context.Context, p models.Profile) error {
	p.Normalize()
	c := cloneProfile(p)
	s.session = &c
	if err := s.updateProfileLocked(ctx, p); err != nil {
		return err
	}
	s.postLocked(ctx, models.Notification{
		Message: fmt.Sprintf("Welcome back, %s!", p.Name),
		Type:    models.NotifySuccess,
	})
	slog.Info("Session established", "id", p.ID, "name", p.Name)
	return nil
}

// Logout clears the active session reference only; everything persisted
// stays intact.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// ClaimDaily grants the daily coin reward at most once per calendar day per
// profile, gated by the stored claim stamp.
func (s *Store) ClaimDaily(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return false, ErrNoSession
	}

	key := fmt.Sprintf("lounge:last_daily:%s", s.session.ID)
	today := s.now().Format("2006-01-02")

	last, err := s.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to read daily claim stamp: %w", err)
	}
	if last == today {
		return false, nil
	}

	ok, err := s.adjustCoinsLocked(ctx, s.cfg.Economy.DailyReward)
	if err != nil || !ok {
		return ok, err
	}
	if err := s.rdb.Set(ctx, key, today, 0).Err(); err != nil {
		return true, fmt.Errorf("failed to write daily claim stamp: %w", err)
	}
	return true, nil
}

// Lookup finds a profile in the public collection by ID, case-insensitively,
// matching the friend-search behavior.
func (s *Store) Lookup(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.publicProfilesLocked(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if strings.EqualFold(profiles[i].ID, id) {
			c := cloneProfile(profiles[i])
			return &c, nil
		}
	}
	return nil, ErrProfileNotFound
}

// Leaderboard returns the public profiles ordered by charms, highest first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.publicProfilesLocked(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Charms > profiles[j].Charms
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

// PostMoment prepends a new moment to the session profile, newest first.
func (s *Store) PostMoment(ctx context.Context, text, image string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, ErrNoSession
	}

	m := models.Moment{
		ID:        uuid.NewString(),
		Text:      text,
		Image:     image,
		Timestamp: s.now().UnixMilli(),
	}
	updated := cloneProfile(*s.session)
	updated.Moments = append([]models.Moment{m}, updated.Moments...)
	if err := s.updateProfileLocked(ctx, updated); err != nil {
		return nil, err
	}
	c := cloneProfile(updated)
	return &c, nil
}

// Notification returns the session user's currently displayed notification,
// or nil once it has expired.
func (s *Store) Notification(ctx context.Context) (*models.Notification, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	id := s.session.ID
	s.mu.Unlock()
	return s.notifier.Current(ctx, id)
}

func (s *Store) publicProfilesLocked(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.kv.Get(ctx, store.KeyPublicProfiles, &profiles)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *Store) accountsLocked(ctx context.Context) (map[string]models.Account, error) {
	accounts := map[string]models.Account{}
	err := s.kv.Get(ctx, store.KeyAccounts, &accounts)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return accounts, nil
}

// postLocked surfaces a notification. Delivery failures are logged and
// swallowed: the slot is presentation, not state.
func (s *Store) postLocked(ctx context.Context, n models.Notification) {
	if s.session == nil {
		return
	}
	if err := s.notifier.Post(ctx, s.session.ID, n); err != nil {
		slog.Error("Failed to post notification", "error", err)
	}
}

func (s *Store) publishLocked(event models.EconomyEvent) {
	if s.producer == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode economy event", "error", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: s.cfg.Kafka.Topic,
		Value: sarama.StringEncoder(raw),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		slog.Error("Failed to publish economy event", "type", event.Type, "error", err)
	}
}

func findProfile(profiles []models.Profile, id string) int {
	for i := range profiles {
		if profiles[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneProfile(p models.Profile) models.Profile {
	if p.GiftStats != nil {
		stats := make(map[string]int, len(p.GiftStats))
		for k, v := range p.GiftStats {
			stats[k] = v
		}
		p.GiftStats = stats
	}
	if p.Moments != nil {
		p.Moments = append([]models.Moment(nil), p.Moments...)
	}
	return p
}
