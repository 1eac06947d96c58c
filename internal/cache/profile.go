// Package cache is the Redis read-through cache for seller profiles.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
)

const (
	keyPrefix = "sellertrust:profile:"

	// loadTimeout bounds a shared load. It runs detached from the caller that
	// started it so one caller going away does not fail the others.
	loadTimeout = 5 * time.Second
)

// ProfileCache caches assembled profiles by canonical seller ID. Redis errors
// never fail a read: the profile is loaded from the store instead. Concurrent
// misses for one seller share a single load.
type ProfileCache struct {
	client      redis.Cmdable
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

// NewProfileCache creates a cache storing entries for ttl.
func NewProfileCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	return &ProfileCache{
		client:      client,
		ttl:         ttl,
		loadTimeout: loadTimeout,
		logger:      logger,
	}
}

func key(sellerID string) string {
	return keyPrefix + sellerID
}

// Get returns the cached profile, or false on a miss.
func (c *ProfileCache) Get(ctx context.Context, sellerID string) (*domain.Profile, bool, error) {
	data, err := c.client.Get(ctx, key(sellerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get profile: %w", err)
	}

	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, true, nil
}

// Set stores p under its seller ID.
func (c *ProfileCache) Set(ctx context.Context, sellerID string, p *domain.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.client.Set(ctx, key(sellerID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set profile: %w", err)
	}
	return nil
}

// Invalidate drops the cached profile of a seller.
func (c *ProfileCache) Invalidate(ctx context.Context, sellerID string) error {
	if err := c.client.Del(ctx, key(sellerID)).Err(); err != nil {
		return fmt.Errorf("redis del profile: %w", err)
	}
	return nil
}

// GetOrLoad serves from Redis when possible and otherwise runs load once per
// seller across concurrent callers, storing the result. A caller whose ctx
// ends stops waiting; the shared load carries on for the rest.
func (c *ProfileCache) GetOrLoad(ctx context.Context, sellerID string, load func(ctx context.Context) (*domain.Profile, error)) (*domain.Profile, error) {
	if p, ok, err := c.Get(ctx, sellerID); err != nil {
		c.logger.WarnContext(ctx, "profile cache read failed",
			slog.String("seller_id", sellerID),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return p, nil
	}

	ch := c.group.DoChan(sellerID, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		p, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(lctx, sellerID, p); err != nil {
			c.logger.WarnContext(lctx, "profile cache write failed",
				slog.String("seller_id", sellerID),
				slog.String("error", err.Error()),
			)
		}
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Profile), nil
	}
}
