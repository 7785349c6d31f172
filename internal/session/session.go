package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"docregistry/internal/config"
)

// Package session validates externally issued bearer tokens against a shared
// session cache. The cache is written by the session issuer; this service
// only reads entries keyed `session:{token}` holding a JSON identity payload.

var (
	// ErrNoToken indicates the request carried no token at all.
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken indicates the token has no cache entry, has expired,
	// or the cache could not be reached. These cases are deliberately
	// indistinguishable: the gate degrades to deny, never allow.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidPayload indicates the cache entry could not be decoded or
	// lacks a user identifier.
	ErrInvalidPayload = errors.New("invalid token payload")
)

// Identity is the authenticated user record decoded from a session entry.
// It lives for a single request and is never cached across requests.
type Identity struct {
	UserID int64
	// Claims holds the full decoded payload for downstream use.
	Claims map[string]any
}

// Authenticator resolves a bearer token into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// redisAuthenticator implements Authenticator against a Redis-compatible
// session cache through a single long-lived client.
type redisAuthenticator struct {
	client  redis.Cmdable
	prefix  string
	timeout time.Duration
}

// NewRedis builds an Authenticator backed by the configured session cache.
// An unreachable cache is not fatal at startup; lookups deny until it
// recovers.
func NewRedis(cfg config.SessionConfig) Authenticator {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		log.Printf("session cache unreachable at startup, lookups will deny: %v", err)
	}

	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &redisAuthenticator{client: cli, prefix: cfg.KeyPrefix, timeout: timeout}
}

func (a *redisAuthenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}

	// Bounded lookup: a slow cache must not hold the request open, and a
	// timeout is treated exactly like a miss.
	lctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := a.client.Get(lctx, a.prefix+token).Result()
	if err != nil || payload == "" {
		return nil, ErrInvalidToken
	}

	var claims map[string]any
	if err := json.Unmarshal([]byte(payload), &claims); err != nil {
		return nil, ErrInvalidPayload
	}
	uid, ok := userIDClaim(claims)
	if !ok {
		return nil, ErrInvalidPayload
	}
	return &Identity{UserID: uid, Claims: claims}, nil
}

// userIDClaim extracts the required user identifier. JSON numbers decode as
// float64; string identifiers from older issuers are accepted too.
func userIDClaim(claims map[string]any) (int64, bool) {
	v, ok := claims["user_id"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// TokenFromHeader extracts a bearer token from an Authorization header
// value, accepting both `Bearer <token>` (case-insensitive prefix) and
// raw-token forms.
func TokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
