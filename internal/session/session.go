// Package session issues and resolves opaque bearer tokens backed by an
// expiring Redis key-value store. Tokens expire passively: an expired key is
// simply absent on the next lookup, nothing extends the TTL on read.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth_"

// Store maps tokens to user ids with a fixed time-to-live.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore initializes a session store and verifies the Redis connection.
func NewStore(addr, password string, db int, ttl time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Store{client: client, ttl: ttl}, nil
}

// NewStoreWithClient wraps an existing client, sharing the connection with
// other Redis-backed components.
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Issue generates a fresh opaque token for userID and stores the mapping
// with the configured TTL.
func (s *Store) Issue(ctx context.Context, userID int64) (string, error) {
	generateToken, err := nanoid.Standard(40)
	if err != nil {
		return "", fmt.Errorf("failed to initialize token generator: %w", err)
	}
	token := generateToken()

	err = s.client.Set(ctx, keyPrefix+token, strconv.FormatInt(userID, 10), s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Resolve returns the user id bound to token, or (0, nil) when the token is
// unknown or expired. Store unavailability comes back as an error so callers
// can tell an infrastructure failure apart from a missing session.
func (s *Store) Resolve(ctx context.Context, token string) (int64, error) {
	val, err := s.client.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value for token: %w", err)
	}

	return userID, nil
}

// Revoke deletes the token mapping. Revoking an absent token is a no-op.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Ping reports liveness of the backing store, used by the status endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
