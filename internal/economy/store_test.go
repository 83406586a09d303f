package economy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"loungehub/internal/config"
	"loungehub/internal/models"
	"loungehub/internal/notify"
	"loungehub/internal/store"
)

// MockProducer captures published economy events for assertions.
type MockProducer struct {
	sarama.SyncProducer
	messages []*sarama.ProducerMessage
}

func (m *MockProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.messages = append(m.messages, msg)
	return 0, 0, nil
}

func (m *MockProducer) Close() error { return nil }

type testDeps struct {
	kv       *store.MemoryKV
	redis    *miniredis.Miniredis
	notifier *notify.MemoryNotifier
	producer *MockProducer
}

func setupStore(t *testing.T) (*Store, *testDeps) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	deps := &testDeps{
		kv:       store.NewMemoryKV(),
		redis:    mr,
		notifier: notify.NewMemoryNotifier(),
		producer: &MockProducer{},
	}

	cfg := &config.Config{
		Kafka:   config.KafkaConfig{Topic: "economy-events"},
		Economy: config.EconomyConfig{StartingCoins: 100, DailyReward: 50, AvatarCost: 50},
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(cfg, deps.kv, rdb, deps.notifier, deps.producer), deps
}

func loginFresh(t *testing.T, s *Store, name string) *models.Profile {
	p, err := s.Register(context.Background(), name, "avatar.png", "", "")
	assert.NoError(t, err)
	return p
}

func mustGift(t *testing.T, id string) models.Gift {
	g, ok := models.GiftByID(id)
	assert.True(t, ok)
	return g
}

func lastNotification(d *testDeps) models.Notification {
	return d.notifier.History[len(d.notifier.History)-1]
}

func TestAdjustCoinsEarn(t *testing.T) {
	s, deps := setupStore(t)
	loginFresh(t, s, "Mira")

	ok, err := s.AdjustCoins(context.Background(), 25)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 125, s.CurrentUser().Coins)

	n := lastNotification(deps)
	assert.Equal(t, "Earned 25 coins!", n.Message)
	assert.Equal(t, models.NotifySuccess, n.Type)
}

func TestAdjustCoinsSpendToZero(t *testing.T) {
	s, _ := setupStore(t)
	loginFresh(t, s, "Mira")

	ok, err := s.AdjustCoins(context.Background(), -100)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, s.CurrentUser().Coins)
}

func TestAdjustCoinsInsufficientFunds(t *testing.T) {
	s, deps := setupStore(t)
	loginFresh(t, s, "Mira")

	ok, err := s.AdjustCoins(context.Background(), -101)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 100, s.CurrentUser().Coins, "no mutation on rejection")

	n := lastNotification(deps)
	assert.Equal(t, "Not enough coins!", n.Message)
	assert.Equal(t, models.NotifyError, n.Type)
}

func TestAdjustCoinsWithoutSession(t *testing.T) {
	s, _ := setupStore(t)

	_, err := s.AdjustCoins(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSendGiftDiamondScenario(t *testing.T) {
	s, deps := setupStore(t)

	// The recipient logs in first so they exist in the public collection,
	// then the sender takes over the session.
	recipient := loginFresh(t, s, "Rook")
	loginFresh(t, s, "Mira")

	ok, err := s.SendGift(context.Background(), mustGift(t, "diamond"), recipient.ID, recipient.Name)
	assert.NoError(t, err)
	assert.True(t, ok)

	got := s.CurrentUser()
	assert.Equal(t, 0, got.Coins)
	assert.Equal(t, 1, got.GiftsSent)
	assert.Equal(t, 250, got.XP)
	assert.Equal(t, 1, got.Level, "250 xp stays in tier 1")

	r, err := s.Lookup(context.Background(), recipient.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, r.GiftsReceived)
	assert.Equal(t, 10, r.Charms)
	assert.Equal(t, 125, r.XP)
	assert.Equal(t, map[string]int{"diamond": 1}, r.GiftStats)

	n := lastNotification(deps)
	assert.Equal(t, "Sent 💎 to Rook! (+250 XP)", n.Message)
	assert.Equal(t, models.NotifySuccess, n.Type)

	// Exactly one gift event on the topic.
	var giftEvents int
	for _, msg := range deps.producer.messages {
		raw := string(msg.Value.(sarama.StringEncoder))
		if msg.Topic == "economy-events" && strings.Contains(raw, `"type":"gift_sent"`) {
			assert.Contains(t, raw, `"giftId":"diamond"`)
			giftEvents++
		}
	}
	assert.Equal(t, 1, giftEvents)
}

func TestSendGiftLevelsUpSender(t *testing.T) {
	s, _ := setupStore(t)
	p := loginFresh(t, s, "Mira")

	// Seed enough coins and xp to cross a tier with one rocket.
	seeded := *p
	seeded.Coins = 200
	seeded.XP = 900
	assert.NoError(t, s.UpdateProfile(context.Background(), seeded))

	ok, err := s.SendGift(context.Background(), mustGift(t, "rocket"), "P000000", "Nobody")
	assert.NoError(t, err)
	assert.True(t, ok)

	got := s.CurrentUser()
	assert.Equal(t, 1500, got.XP)
	assert.Equal(t, 2, got.Level)
}

func TestSendGiftInsufficientFundsLeavesStateUntouched(t *testing.T) {
	s, deps := setupStore(t)
	p := loginFresh(t, s, "Mira")

	snapshot := *p
	snapshot.Coins = 40
	assert.NoError(t, s.UpdateProfile(context.Background(), snapshot))

	before := deps.kv.Dump(store.KeySessionUser)

	ok, err := s.SendGift(context.Background(), mustGift(t, "crown"), "P999999", "Rook")
	assert.NoError(t, err)
	assert.False(t, ok)

	after := deps.kv.Dump(store.KeySessionUser)
	assert.Equal(t, before, after, "persisted profile must be byte-for-byte unchanged")

	got := s.CurrentUser()
	assert.Equal(t, 40, got.Coins)
	assert.Equal(t, 0, got.GiftsSent)

	n := lastNotification(deps)
	assert.Equal(t, "Need 50 coins for Crown!", n.Message)
	assert.Equal(t, models.NotifyError, n.Type)
}

func TestSendGiftMissingRecipientStillChargesSender(t *testing.T) {
	s, _ := setupStore(t)
	loginFresh(t, s, "Mira")

	// Nobody but the sender is in the public collection; the gift is lost,
	// the call still succeeds and the sender is still charged.
	ok, err := s.SendGift(context.Background(), mustGift(t, "rose"), "P424242", "Ghost")
	assert.NoError(t, err)
	assert.True(t, ok)

	got := s.CurrentUser()
	assert.Equal(t, 95, got.Coins)
	assert.Equal(t, 1, got.GiftsSent)

	_, err = s.Lookup(context.Background(), "P424242")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSendGiftRecipientLevelNotRecomputed(t *testing.T) {
	s, _ := setupStore(t)
	recipient := loginFresh(t, s, "Rook")

	// Park the recipient just below a tier boundary.
	parked := *recipient
	parked.XP = 950
	parked.Level = 1
	assert.NoError(t, s.UpdateProfile(context.Background(), parked))

	loginFresh(t, s, "Mira")

	ok, err := s.SendGift(context.Background(), mustGift(t, "diamond"), recipient.ID, recipient.Name)
	assert.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Lookup(context.Background(), recipient.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1075, r.XP)
	assert.Equal(t, 1, r.Level, "recipient tier stays stale until they act themselves")
}

func TestSendGiftAccumulatesGiftStats(t *testing.T) {
	s, _ := setupStore(t)
	recipient := loginFresh(t, s, "Rook")
	loginFresh(t, s, "Mira")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := s.SendGift(ctx, mustGift(t, "rose"), recipient.ID, recipient.Name)
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := s.SendGift(ctx, mustGift(t, "heart"), recipient.ID, recipient.Name)
	assert.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Lookup(ctx, recipient.ID)
	assert.NoError(t, err)
	assert.Equal(t, map[string]int{"rose": 3, "heart": 1}, r.GiftStats)
	assert.Equal(t, 4, r.GiftsReceived)
	// Charms round down per gift: 5/10 is worth nothing, 10/10 is worth one.
	assert.Equal(t, 1, r.Charms)
}

func TestUpdateProfileIsIdempotent(t *testing.T) {
	s, deps := setupStore(t)
	p := loginFresh(t, s, "Mira")

	snapshot := *p
	snapshot.Signature = "hello"

	assert.NoError(t, s.UpdateProfile(context.Background(), snapshot))
	once := append([]byte(nil), deps.kv.Dump(store.KeyPublicProfiles)...)
	onceUser := append([]byte(nil), deps.kv.Dump(store.KeySessionUser)...)

	assert.NoError(t, s.UpdateProfile(context.Background(), snapshot))
	assert.Equal(t, once, deps.kv.Dump(store.KeyPublicProfiles))
	assert.Equal(t, onceUser, deps.kv.Dump(store.KeySessionUser))
}

func TestUpdateProfileUpsertsPreservingPosition(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	first := loginFresh(t, s, "One")
	second := loginFresh(t, s, "Two")
	third := loginFresh(t, s, "Three")

	renamed := *first
	renamed.Name = "One Renamed"
	assert.NoError(t, s.UpdateProfile(ctx, renamed))

	board, err := s.Leaderboard(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, board, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID},
		[]string{board[0].ID, board[1].ID, board[2].ID},
		"overwrite must keep the original position")
	assert.Equal(t, "One Renamed", board[0].Name)
}

func TestUpdateProfileRequiresID(t *testing.T) {
	s, _ := setupStore(t)
	err := s.UpdateProfile(context.Background(), models.Profile{Name: "nobody"})
	assert.ErrorIs(t, err, ErrMissingProfileID)
}

func TestRegisterDefaults(t *testing.T) {
	s, deps := setupStore(t)

	p, err := s.Register(context.Background(), "Mira", "avatar.png", "mira@example.com", "hunter2")
	assert.NoError(t, err)
	assert.Regexp(t, `^P\d{6}$`, p.ID)
	assert.Equal(t, 100, p.Coins)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.XP)
	assert.NotNil(t, p.GiftStats)

	n := lastNotification(deps)
	assert.Equal(t, "Welcome back, Mira!", n.Message)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "Mira", "a.png", "mira@example.com", "hunter2")
	assert.NoError(t, err)

	_, err = s.Register(ctx, "Imposter", "b.png", "mira@example.com", "other")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestLoginWithStoredCredentials(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	registered, err := s.Register(ctx, "Mira", "a.png", "mira@example.com", "hunter2")
	assert.NoError(t, err)
	s.Logout()
	assert.Nil(t, s.CurrentUser())

	_, err = s.Login(ctx, "mira@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, s.CurrentUser())

	_, err = s.Login(ctx, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	p, err := s.Login(ctx, "mira@example.com", "hunter2")
	assert.NoError(t, err)
	assert.Equal(t, registered.ID, p.ID)
	assert.Equal(t, registered.ID, s.CurrentUser().ID)
}

func TestLoginNormalizesLegacyAccount(t *testing.T) {
	s, deps := setupStore(t)
	ctx := context.Background()

	// An account saved by an older build: no charms, no gift stats.
	legacy := map[string]models.Account{
		"old@example.com": {
			Password: "pw",
			Profile: models.Profile{
				ID: "P555555", Name: "Old Timer", Avatar: "o.png",
				Level: 1, XP: 400, Coins: 30,
			},
		},
	}
	assert.NoError(t, deps.kv.Set(ctx, store.KeyAccounts, legacy))

	p, err := s.Login(ctx, "old@example.com", "pw")
	assert.NoError(t, err)
	assert.Equal(t, 0, p.Charms)
	assert.NotNil(t, p.GiftStats)
}

func TestLogoutKeepsPersistedSession(t *testing.T) {
	s, deps := setupStore(t)
	p := loginFresh(t, s, "Mira")

	s.Logout()
	assert.Nil(t, s.CurrentUser())
	assert.NotNil(t, deps.kv.Dump(store.KeySessionUser), "persisted copy survives logout")

	// A fresh store over the same KV restores the session.
	restored := NewStore(s.cfg, deps.kv, s.rdb, deps.notifier, deps.producer)
	assert.NoError(t, restored.Init(context.Background()))
	assert.Equal(t, p.ID, restored.CurrentUser().ID)
}

func TestClaimDailyOncePerCalendarDay(t *testing.T) {
	s, _ := setupStore(t)
	loginFresh(t, s, "Mira")
	ctx := context.Background()

	day := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }

	ok, err := s.ClaimDaily(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 150, s.CurrentUser().Coins)

	// Any number of repeat checks the same day grant nothing.
	for i := 0; i < 3; i++ {
		ok, err = s.ClaimDaily(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 150, s.CurrentUser().Coins)

	// Later the same day, even after the clock moves, still nothing.
	s.now = func() time.Time { return day.Add(10 * time.Hour) }
	ok, err = s.ClaimDaily(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	// Next calendar day claims again.
	s.now = func() time.Time { return day.Add(24 * time.Hour) }
	ok, err = s.ClaimDaily(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 200, s.CurrentUser().Coins)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	s, _ := setupStore(t)
	p := loginFresh(t, s, "Mira")

	found, err := s.Lookup(context.Background(), "p"+p.ID[1:])
	assert.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = s.Lookup(context.Background(), "P000001")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLeaderboardOrdersByCharms(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	a := loginFresh(t, s, "A")
	b := loginFresh(t, s, "B")
	c := loginFresh(t, s, "C")

	for p, charms := range map[*models.Profile]int{a: 5, b: 50, c: 20} {
		snap := *p
		snap.Charms = charms
		assert.NoError(t, s.UpdateProfile(ctx, snap))
	}

	board, err := s.Leaderboard(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, board, 2)
	assert.Equal(t, b.ID, board[0].ID)
	assert.Equal(t, c.ID, board[1].ID)
}

func TestPostMomentPrependsNewestFirst(t *testing.T) {
	s, _ := setupStore(t)
	loginFresh(t, s, "Mira")
	ctx := context.Background()

	_, err := s.PostMoment(ctx, "first post", "")
	assert.NoError(t, err)
	p, err := s.PostMoment(ctx, "second post", "img.png")
	assert.NoError(t, err)

	assert.Len(t, p.Moments, 2)
	assert.Equal(t, "second post", p.Moments[0].Text)
	assert.Equal(t, "img.png", p.Moments[0].Image)
	assert.Equal(t, "first post", p.Moments[1].Text)
	assert.NotEmpty(t, p.Moments[0].ID)
}

func TestNotificationRequiresSession(t *testing.T) {
	s, _ := setupStore(t)
	_, err := s.Notification(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCurrentUserReturnsCopy(t *testing.T) {
	s, _ := setupStore(t)
	loginFresh(t, s, "Mira")

	got := s.CurrentUser()
	got.Coins = 9999
	got.GiftStats["hacked"] = 1

	assert.Equal(t, 100, s.CurrentUser().Coins)
	assert.Empty(t, s.CurrentUser().GiftStats)
}

func TestGiftEventsReachTheProducer(t *testing.T) {
	s, deps := setupStore(t)
	recipient := loginFresh(t, s, "Rook")
	loginFresh(t, s, "Mira")

	ok, err := s.SendGift(context.Background(), mustGift(t, "heart"), recipient.ID, recipient.Name)
	assert.NoError(t, err)
	assert.True(t, ok)

	var last string
	for _, msg := range deps.producer.messages {
		last = string(msg.Value.(sarama.StringEncoder))
	}
	assert.Contains(t, last, `"type":"gift_sent"`)
	assert.Contains(t, last, `"giftId":"heart"`)
	assert.Contains(t, last, recipient.ID)

	var event models.EconomyEvent
	assert.NoError(t, json.Unmarshal([]byte(last), &event))
	assert.Equal(t, 10, event.Cost)
	assert.Equal(t, 10, event.XPValue)
}

func TestAdjustCoinsErrorsOnNilSessionAfterLogout(t *testing.T) {
	s, _ := setupStore(t)
	loginFresh(t, s, "Mira")
	s.Logout()

	_, err := s.ClaimDaily(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = s.PostMoment(context.Background(), "text", "")
	assert.ErrorIs(t, err, ErrNoSession)
	var boolRes bool
	boolRes, err = s.SendGift(context.Background(), mustGift(t, "rose"), "P000000", "x")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, boolRes)
}
