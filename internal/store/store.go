package store

import (
	"context"
	"errors"
)

// Persisted keys. Values are JSON documents matching the models package.
const (
	KeySessionUser    = "lounge:user"            // active session Profile
	KeyPublicProfiles = "lounge:public_profiles" // []Profile, unique by ID
	KeyAccounts       = "lounge:accounts"        // map[email]Account
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// KV defines the persistence boundary for the economy core. Keeping it to
// get/set semantics means the economy logic runs unchanged against the
// in-memory implementation in tests.
type KV interface {
	// Get unmarshals the value stored under key into dest.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set marshals value and stores it under key, replacing any prior value.
	Set(ctx context.Context, key string, value interface{}) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
