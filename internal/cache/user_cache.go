package cache

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/jon4hz/learnlog/internal/config"
	"github.com/jon4hz/learnlog/internal/database"
)

// UserCachePrefix is the key prefix of cached users.
const UserCachePrefix = "user-"

// UserCache caches users by id in front of the credential store.
// Users never change after creation, so entries only disappear by TTL or Forget.
// There is no Clear: the redis store flushes the whole server on Clear.
// Password hashes are not serialized and are therefore never cached.
type UserCache struct {
	users *PrefixedCache[database.User]
}

func NewUserCache(cfg *config.CacheConfig) (*UserCache, error) {
	c, err := newCacheInstanceByType(cfg)
	if err != nil {
		return nil, err
	}
	return &UserCache{
		users: NewPrefixedCache[database.User](c, UserCachePrefix),
	}, nil
}

// Get returns the cached user and whether it was found.
// Cache errors count as misses.
func (u *UserCache) Get(ctx context.Context, id uint) (*database.User, bool) {
	user, err := u.users.Get(ctx, id)
	if err != nil {
		return nil, false
	}
	return &user, true
}

func (u *UserCache) Put(ctx context.Context, user *database.User) {
	if user == nil {
		return
	}
	if err := u.users.Set(ctx, user.ID, *user); err != nil {
		log.Warn("failed to cache user", "user_id", user.ID, "error", err)
	}
}

// Forget evicts a single user. Missing keys are not an error.
func (u *UserCache) Forget(ctx context.Context, id uint) {
	if err := u.users.Delete(ctx, id); err != nil {
		log.Debug("failed to evict user from cache", "user_id", id, "error", err)
	}
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
	CacheType string `json:"cacheType"`
}

func (u *UserCache) GetStats() *Stats {
	return &Stats{
		Stats:     u.users.GetStats(),
		CacheName: "users",
		CacheType: u.users.GetType(),
	}
}
