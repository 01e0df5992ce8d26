package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"photoquest/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ConnectRedis opens a client and pings it. An empty addr yields a nil
// client, which makes RateLimiter run in-process only.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RateLimiter implements a fixed-window limit shared through Redis
// (INCR/EXPIRE on rl:<name>:<window_seconds>:<ip>). When Redis is absent or
// failing, a per-process token bucket per client IP takes over.
type RateLimiter struct {
	redis *redis.Client

	mu    sync.Mutex
	local map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const maxLocalVisitors = 10000

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{redis: client, local: make(map[string]*visitor)}
}

// Limit allows maxRequests per window per client IP.
func (rl *RateLimiter) Limit(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		key := "rl:" + name + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()

		allowed := rl.allow(c.Request.Context(), key, maxRequests, window)
		if !allowed {
			RLBlocked.WithLabelValues(endpoint).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "kind": "rate_limited"})
			return
		}

		RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string, maxRequests int, window time.Duration) bool {
	if rl.redis != nil {
		val, err := rl.redis.Incr(ctx, key).Result()
		if err == nil {
			if val == 1 {
				rl.redis.Expire(ctx, key, window)
			}
			return val <= int64(maxRequests)
		}
		logger.WithContext(ctx).Warn("rate limiter redis error, using local limiter", "error", err)
	}
	return rl.allowLocal(key, maxRequests, window)
}

func (rl *RateLimiter) allowLocal(key string, maxRequests int, window time.Duration) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.local[key]
	if !ok {
		if len(rl.local) >= maxLocalVisitors {
			rl.prune(now, window)
		}
		every := window / time.Duration(max(maxRequests, 1))
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), maxRequests)}
		rl.local[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// prune drops visitors idle for longer than two windows. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time, window time.Duration) {
	for k, v := range rl.local {
		if now.Sub(v.lastSeen) > 2*window {
			delete(rl.local, k)
		}
	}
}
