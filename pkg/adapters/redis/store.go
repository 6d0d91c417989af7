// Package redis implements ports.StateStore on Redis, with the etag check
// and the write performed atomically by a Lua script.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parleyio/parley/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// putScript performs the compare-etag write. A record is a hash with two
// fields so the value and its etag can never drift apart.
var putScript = backend.NewScript(`
local current = redis.call("HGET", KEYS[1], "etag")
if ARGV[2] == "" then
  if current then return redis.error_reply("etag conflict") end
else
  if current ~= ARGV[2] then return redis.error_reply("etag conflict") end
end
redis.call("HSET", KEYS[1], "value", ARGV[1], "etag", ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
return ARGV[3]
`)

// Store implements ports.StateStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for records.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "parley:state:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get retrieves the value and etag for a key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	fields, err := s.client.HMGet(ctx, s.key(key), "value", "etag").Result()
	if err != nil {
		return nil, "", fmt.Errorf("redis get %s: %w", key, err)
	}

	value, okValue := fields[0].(string)
	etag, okEtag := fields[1].(string)
	if !okValue || !okEtag {
		return nil, "", domain.ErrRecordNotFound
	}
	return []byte(value), etag, nil
}

// Put conditionally writes the value; the compare and the write happen in
// one script so a racing turn can never partially persist.
func (s *Store) Put(ctx context.Context, key string, value []byte, etag string) (string, error) {
	next := uuid.NewString()
	_, err := putScript.Run(ctx, s.client,
		[]string{s.key(key)},
		string(value), etag, next, s.ttl.Milliseconds(),
	).Result()
	if err != nil {
		if strings.Contains(err.Error(), "etag conflict") {
			return "", domain.ErrConflict
		}
		return "", fmt.Errorf("redis put %s: %w", key, err)
	}
	return next, nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
