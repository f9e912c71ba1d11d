package drafts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

const draftKeySuffix = "reservationData"

// RedisOptions configures the redis connection used for drafts.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// KeySecret hashes session tokens into key names so redis never holds raw tokens.
	KeySecret string
}

// RedisStore keeps drafts as JSON values with a server-side TTL.
type RedisStore struct {
	client *redis.Client
	secret string
	logger *logrus.Entry
}

// DialRedis connects and pings the server before returning a store.
func DialRedis(ctx context.Context, opts RedisOptions, logger *logrus.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	store := NewRedisStore(client, opts.KeySecret, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Health(pingCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	store.logger.WithFields(logrus.Fields{"addr": opts.Addr, "db": opts.DB}).Info("redis draft store connected")
	return store, nil
}

// NewRedisStore wraps an existing client. An empty secret keys drafts by the raw token.
func NewRedisStore(client *redis.Client, secret string, logger *logrus.Logger) *RedisStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisStore{client: client, secret: secret, logger: logger.WithField("component", "drafts.redis")}
}

// Key returns the redis key holding the draft of a session.
func Key(secret, token string) string {
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(token))
		token = hex.EncodeToString(mac.Sum(nil))
	}
	return "akiya:draft:" + token + ":" + draftKeySuffix
}

// Get loads and decodes a draft. A missing key is a miss, not an error.
func (s *RedisStore) Get(ctx context.Context, token string) (application.Draft, bool, error) {
	raw, err := s.client.Get(ctx, Key(s.secret, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return application.Draft{}, false, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to read draft")
		return application.Draft{}, false, fmt.Errorf("draft get: %w", err)
	}

	var draft application.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return application.Draft{}, false, fmt.Errorf("decode draft: %w", err)
	}
	return draft, true, nil
}

// Put stores the draft with ttl.
func (s *RedisStore) Put(ctx context.Context, token string, draft application.Draft, ttl time.Duration) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, Key(s.secret, token), raw, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("failed to write draft")
		return fmt.Errorf("draft set: %w", err)
	}
	return nil
}

// Delete removes the draft.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, Key(s.secret, token)).Err(); err != nil {
		s.logger.WithError(err).Error("failed to delete draft")
		return fmt.Errorf("draft delete: %w", err)
	}
	return nil
}

// Health pings the server.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
