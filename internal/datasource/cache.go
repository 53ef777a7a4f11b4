package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"geoedit/internal/geom"
	"geoedit/internal/logger"
	"geoedit/internal/metrics"
)

// Cached is a read-through Redis cache in front of another adapter. Viewport
// loads are cached as JSON under a key that embeds a generation number; every
// successful write bumps the generation so stale viewports are never served.
// Redis failures fall through to the wrapped adapter.
type Cached struct {
	next   Adapter
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis returns a client for addr, or nil when addr is empty.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	logger.L().Debug("redis_open", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// NewCached wraps next. A nil client disables caching and returns next as is.
func NewCached(next Adapter, rc *redis.Client, prefix string, ttl time.Duration) Adapter {
	if rc == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	if prefix == "" {
		prefix = "geoedit"
	}
	return &Cached{next: next, rc: rc, prefix: prefix, ttl: ttl}
}

func (c *Cached) LoadElements(ctx context.Context, vp Viewport) ([]*geom.Geometry, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		logger.L().Warn("cache_gen_failed", "err", err)
		return c.next.LoadElements(ctx, vp)
	}
	key := viewportKey(c.prefix, gen, vp)
	if s, _ := c.rc.Get(ctx, key).Result(); s != "" {
		var out []*geom.Geometry
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			metrics.CacheHitsTotal.Inc()
			return out, nil
		}
	}
	metrics.CacheMissesTotal.Inc()
	out, err := c.next.LoadElements(ctx, vp)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(out); err == nil {
		_ = c.rc.Set(ctx, key, string(b), c.ttl).Err()
	}
	return out, nil
}

func (c *Cached) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	id, err := c.next.InsertElement(ctx, g)
	if err == nil {
		c.invalidate(ctx)
	}
	return id, err
}

func (c *Cached) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	err := c.next.UpdateElement(ctx, id, g)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *Cached) DeleteElement(ctx context.Context, id int64) error {
	err := c.next.DeleteElement(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// Extent passes through when the wrapped adapter supports it.
func (c *Cached) Extent(ctx context.Context) (geom.BBox, bool, error) {
	if e, ok := c.next.(Extenter); ok {
		return e.Extent(ctx)
	}
	return geom.BBox{}, false, nil
}

func (c *Cached) generation(ctx context.Context) (int64, error) {
	s, err := c.rc.Get(ctx, genKey(c.prefix)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *Cached) invalidate(ctx context.Context) {
	if err := c.rc.Incr(ctx, genKey(c.prefix)).Err(); err != nil {
		logger.L().Warn("cache_invalidate_failed", "err", err)
	}
}

func genKey(prefix string) string { return prefix + ":gen" }

// viewportKey quantises the viewport so that tiny float differences share an
// entry.
func viewportKey(prefix string, gen int64, vp Viewport) string {
	b := vp.BBox
	return fmt.Sprintf("%s:%d:%.5f:%.5f:%.5f:%.5f:%.2f", prefix, gen, b.MinX, b.MinY, b.MaxX, b.MaxY, vp.Zoom)
}
