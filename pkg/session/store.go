package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// expirySuffix marks the companion field carrying the IdP-declared
	// absolute expiry (SessionNotOnOrAfter) for a provider's session fact.
	expirySuffix = ":expires_at"

	defaultKeyPrefix = "ssogate:sessions:"

	// defaultRetention bounds how long a session hash outlives its last
	// write. Individual session expiry is computed by the enforcement
	// engine; this is only the backing store's own retention window.
	defaultRetention = 7 * 24 * time.Hour
)

// Config holds Redis connection settings for the session store
type Config struct {
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// KeyPrefix namespaces session hashes; defaults to "ssogate:sessions:"
	KeyPrefix string

	// Retention is the TTL applied to a session hash on every write
	Retention time.Duration
}

// Store holds the Redis connection for SSO session state. Per-web-session
// access goes through Scoped.
type Store struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewStore creates a session store and verifies connectivity
func NewStore(config Config) (*Store, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	retention := config.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	return &Store{client: client, prefix: prefix, retention: retention}, nil
}

// Scoped returns the session state view for one web session
func (s *Store) Scoped(sessionID string) *State {
	return &State{store: s, key: s.prefix + sessionID}
}

// ForEachSession iterates all live session IDs via SCAN. The callback
// receives the bare session ID; returning an error stops the sweep.
func (s *Store) ForEachSession(ctx context.Context, fn func(sessionID string) error) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := fn(strings.TrimPrefix(iter.Val(), s.prefix)); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("session scan failed: %w", err)
	}
	return nil
}

// Client exposes the underlying Redis client for health checks and other
// shared-infrastructure consumers
func (s *Store) Client() *redis.Client {
	return s.client
}

// Ping checks Redis connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// State is one web session's SSO session facts: a Redis hash mapping
// provider IDs to last sign-in timestamps, with ":expires_at" companion
// fields for IdP-declared expiries.
type State struct {
	store *Store
	key   string
}

// RecordSignIn writes the session fact for a provider. A later sign-in
// overwrites the earlier one; an absent expiresAt clears any stale companion
// field. Last writer wins across concurrent sign-ins.
func (st *State) RecordSignIn(ctx context.Context, providerID int64, at time.Time, expiresAt *time.Time) error {
	pipe := st.store.client.TxPipeline()
	pipe.HSet(ctx, st.key, ProviderField(providerID), at.UTC().Format(time.RFC3339Nano))
	if expiresAt != nil {
		pipe.HSet(ctx, st.key, ExpiryField(providerID), expiresAt.UTC().Format(time.RFC3339Nano))
	} else {
		pipe.HDel(ctx, st.key, ExpiryField(providerID))
	}
	pipe.Expire(ctx, st.key, st.store.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record sign-in for provider %d: %w", providerID, err)
	}
	return nil
}

// LastSignIn returns the last recorded sign-in time for a provider, or nil
// when no session fact exists.
func (st *State) LastSignIn(ctx context.Context, providerID int64) (*time.Time, error) {
	return st.getTime(ctx, ProviderField(providerID))
}

// SessionExpiry returns the IdP-declared absolute expiry for a provider's
// session, or nil when the sign-in carried none.
func (st *State) SessionExpiry(ctx context.Context, providerID int64) (*time.Time, error) {
	return st.getTime(ctx, ExpiryField(providerID))
}

// ActiveSessions returns a snapshot of every field in the session hash,
// companion expiry fields included. Fields holding unparsable timestamps are
// dropped rather than failing the whole read.
func (st *State) ActiveSessions(ctx context.Context) (map[string]time.Time, error) {
	fields, err := st.store.client.HGetAll(ctx, st.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	sessions := make(map[string]time.Time, len(fields))
	for field, raw := range fields {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			continue
		}
		sessions[field] = at
	}
	return sessions, nil
}

// Clear drops all session facts for this web session
func (st *State) Clear(ctx context.Context) error {
	return st.store.client.Del(ctx, st.key).Err()
}

func (st *State) getTime(ctx context.Context, field string) (*time.Time, error) {
	raw, err := st.store.client.HGet(ctx, st.key, field).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session field %s: %w", field, err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp in session field %s: %w", field, err)
	}
	return &at, nil
}

// ProviderField is the hash field holding a provider's last sign-in time
func ProviderField(providerID int64) string {
	return strconv.FormatInt(providerID, 10)
}

// ExpiryField is the companion hash field holding a provider's IdP-declared expiry
func ExpiryField(providerID int64) string {
	return ProviderField(providerID) + expirySuffix
}

// IsExpiryField reports whether a hash field is an expiry companion record
func IsExpiryField(field string) bool {
	return strings.HasSuffix(field, expirySuffix)
}

// ParseProviderField extracts the provider ID from a primary hash field.
// The second return is false for companion fields and non-numeric fields.
func ParseProviderField(field string) (int64, bool) {
	if IsExpiryField(field) {
		return 0, false
	}
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
