// AngelaMos | 2026
// cache.go

package billing

import (
	"context"
	"time"

	"github.com/taskispace/api/internal/core"
)

const planCacheKeyPrefix = "billing:plan:"

// PlanCache holds plans by id. Plans change only through seeding and the
// price sync command, so entries live until their TTL or an explicit
// Invalidate.
type PlanCache interface {
	Get(ctx context.Context, id string) (*Plan, error)
	Set(ctx context.Context, plan *Plan) error
	Invalidate(ctx context.Context, ids ...string) error
}

type redisPlanCache struct {
	rdb *core.Redis
	ttl time.Duration
}

func NewRedisPlanCache(rdb *core.Redis, ttl time.Duration) PlanCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisPlanCache{rdb: rdb, ttl: ttl}
}

func (c *redisPlanCache) Get(ctx context.Context, id string) (*Plan, error) {
	var plan Plan
	if err := c.rdb.GetJSON(ctx, planCacheKeyPrefix+id, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *redisPlanCache) Set(ctx context.Context, plan *Plan) error {
	return c.rdb.SetJSON(ctx, planCacheKeyPrefix+plan.ID, plan, c.ttl)
}

func (c *redisPlanCache) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, planCacheKeyPrefix+id)
	}
	return c.rdb.Delete(ctx, keys...)
}
