package models

import (
	"fmt"
	"math/rand"
)

// Profile represents one participant: the active session user or any other
// party reachable by ID lookup.
type Profile struct {
	ID            string         `json:"id"` // "P" + 6 digits, immutable
	Name          string         `json:"name"`
	Avatar        string         `json:"avatar"`
	Level         int            `json:"level"`
	XP            int            `json:"xp"`
	Coins         int            `json:"coins"`
	GiftsSent     int            `json:"giftsSent"`
	GiftsReceived int            `json:"giftsReceived"`
	Charms        int            `json:"charms"`
	GiftStats     map[string]int `json:"giftStats"` // gift ID -> received count
	Moments       []Moment       `json:"moments,omitempty"`
	Gender        string         `json:"gender,omitempty"`
	DOB           string         `json:"dob,omitempty"`
	Region        string         `json:"region,omitempty"`
	Signature     string         `json:"signature,omitempty"`
}

// Moment is a single post on a profile page, newest first.
type Moment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Image     string `json:"image,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Account maps a login email to its password and profile. Passwords are kept
// as-is: this is a local mock credential store, not a real auth system.
type Account struct {
	Password string  `json:"password"`
	Profile  Profile `json:"profile"`
}

// LevelForXP derives the level tier from an xp total.
func LevelForXP(xp int) int {
	return xp/1000 + 1
}

// Normalize fills the defaults for records saved by older builds that predate
// the gift economy. Missing counters come back as zero from JSON already;
// the map and the level floor need an explicit fix-up.
func (p *Profile) Normalize() {
	if p.GiftStats == nil {
		p.GiftStats = map[string]int{}
	}
	if p.Level < 1 {
		p.Level = LevelForXP(p.XP)
	}
}

// NewProfileID generates a participant ID in the P-prefixed 6-digit format.
func NewProfileID() string {
	return fmt.Sprintf("P%06d", 100000+rand.Intn(900000))
}

// NewProfile builds a freshly registered profile with the starting balance.
func NewProfile(name, avatar string, startingCoins int) Profile {
	return Profile{
		ID:        NewProfileID(),
		Name:      name,
		Avatar:    avatar,
		Level:     1,
		XP:        0,
		Coins:     startingCoins,
		GiftStats: map[string]int{},
	}
}
