package storage

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
)

// presence key: hub:presence:<user>
// Value is the gateway id; the TTL bounds staleness if a gateway dies
// without cleaning up. Local registry state stays authoritative — the
// mirror exists so sibling services can answer "is this user online"
// without asking the gateway.
func presenceKey(user string) string { return "hub:presence:" + user }

// PresenceMirror mirrors online/offline edges into redis. All methods
// are best-effort: redis being down is logged, never surfaced to the
// connection path.
type PresenceMirror struct {
	GatewayID string
	TTL       time.Duration
}

func NewPresenceMirror(gatewayID string, ttl time.Duration) *PresenceMirror {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &PresenceMirror{GatewayID: gatewayID, TTL: ttl}
}

func (m *PresenceMirror) Online(userID string) {
	if err := presenceOnline(userID, m.GatewayID, m.TTL); err != nil {
		logger.Warnf("[presence] mirror online failed user=%s err=%v", userID, err)
	}
}

func (m *PresenceMirror) Offline(userID string) {
	if err := presenceOffline(userID); err != nil {
		logger.Warnf("[presence] mirror offline failed user=%s err=%v", userID, err)
	}
}

func presenceOnline(user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

func presenceOffline(user string) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup checks whether a user is marked online anywhere.
func PresenceLookup(user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, fmt.Errorf("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
