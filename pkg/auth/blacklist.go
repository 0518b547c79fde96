package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// Blacklist keeps revoked tokens in Redis until they would have expired
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

// Revoke marks a token as revoked for ttl
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	return b.rdb.Set(ctx, blacklistPrefix+token, "revoked", ttl).Err()
}

// IsRevoked reports whether a token was revoked
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
