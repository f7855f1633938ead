package settings

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/donaldgifford/opay/pkg/types"
)

// RedisStore keeps the settings in a single hash named after the settings
// namespace.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: domain.SettingsName}
}

// DialRedis creates a client from opts and pings it.
func DialRedis(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck,gosec // ping error takes precedence
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisStore(client), nil
}

// Load reads the settings hash. Missing fields load as "".
func (s *RedisStore) Load(ctx context.Context) (*domain.Credentials, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading settings hash: %w", err)
	}

	creds := &domain.Credentials{}
	for name, value := range values {
		creds.Set(name, value)
	}
	return creds, nil
}

// Save validates and writes all three fields with a single HSET.
func (s *RedisStore) Save(ctx context.Context, creds *domain.Credentials) error {
	if err := validateForSave(creds); err != nil {
		return err
	}

	fields := make([]any, 0, 2*len(domain.SettingsKeys))
	for _, key := range domain.SettingsKeys {
		fields = append(fields, key, creds.Get(key))
	}

	if err := s.client.HSet(ctx, s.key, fields...).Err(); err != nil {
		return fmt.Errorf("writing settings hash: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (s *RedisStore) Close() {
	_ = s.client.Close() //nolint:errcheck // nothing to do on close failure
}
