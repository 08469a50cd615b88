// Package secret holds short-lived, single-use values (verification codes,
// OAuth2 exchange codes, session cookies) in a TTL-scoped Redis store.
package secret

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs per key namespace.
const (
	// CodeTTL applies to email verification codes and OAuth2 exchange codes.
	CodeTTL = 5 * time.Minute
	// CookieTTL applies to cookie-based sessions.
	CookieTTL = 24 * time.Hour
)

// Store is a TTL key/value store backed by Redis. Keys are only ever looked
// up by exact construction; no scan or enumeration is exposed. Expiry is
// enforced by Redis, so reads after the TTL behave as absent.
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store on the given Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Set stores value under key, overwriting any existing entry and resetting
// the expiry to now+ttl.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("secret: set %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key and whether it was present and unexpired.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("secret: get %s: %w", key, err)
	}
	return value, true, nil
}

// Has reports whether key is present and unexpired.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("secret: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes key unconditionally. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("secret: del %s: %w", key, err)
	}
	return nil
}
