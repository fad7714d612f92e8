package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CachedSession is the slice of a session the access guard needs per request.
type CachedSession struct {
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
	Role      string    `json:"role"`
}

// ErrSessionRevoked is returned by a SessionCache for a token that was
// logged out or superseded.
var ErrSessionRevoked = errors.New("session revoked")

// SessionCache maps access tokens to live sessions. Entries must expire no
// later than the token they are keyed by. SetSession never overwrites an
// existing entry, so a revocation written by RevokeSession wins over a
// concurrent fill.
type SessionCache interface {
	SetSession(ctx context.Context, accessToken string, session CachedSession, ttl time.Duration) error
	GetSession(ctx context.Context, accessToken string) (*CachedSession, error)
	RevokeSession(ctx context.Context, ttl time.Duration, accessTokens ...string) error
}

type RedisClient struct {
	client *redis.Client
}

func GetRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) SetSession(ctx context.Context, accessToken string, session CachedSession, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.SetNX(ctx, sessionKey(accessToken), payload, ttl).Err()
}

// GetSession returns nil, nil on a cache miss and ErrSessionRevoked for a
// revoked token.
func (r *RedisClient) GetSession(ctx context.Context, accessToken string) (*CachedSession, error) {
	payload, err := r.client.Get(ctx, sessionKey(accessToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(payload) == revokedMarker {
		return nil, ErrSessionRevoked
	}

	var session CachedSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode cached session: %w", err)
	}
	return &session, nil
}

// RevokeSession replaces the entries of accessTokens with a marker that lives
// for ttl, which must cover the remaining lifetime of the tokens.
func (r *RedisClient) RevokeSession(ctx context.Context, ttl time.Duration, accessTokens ...string) error {
	if len(accessTokens) == 0 || ttl <= 0 {
		return nil
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range accessTokens {
			pipe.Set(ctx, sessionKey(token), revokedMarker, ttl)
		}
		return nil
	})
	return err
}

const revokedMarker = "revoked"

func sessionKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return "session:access:" + hex.EncodeToString(sum[:])
}
