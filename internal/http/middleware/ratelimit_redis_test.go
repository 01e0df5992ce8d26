package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(rl *RateLimiter, name string, max int, window time.Duration) *gin.Engine {
	r := gin.New()
	r.GET("/test", rl.Limit(name, max, window), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func hit(r http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestLocalRateLimit(t *testing.T) {
	r := limitedRouter(NewRateLimiter(nil), "local", 2, time.Minute)

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1"))

	// separate bucket per client
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2"))
}

func TestLocalRateLimitPrunesIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(nil)
	now := time.Now()
	rl.local["old"] = &visitor{lastSeen: now.Add(-time.Hour)}
	rl.local["fresh"] = &visitor{lastSeen: now}

	rl.prune(now, time.Minute)

	assert.NotContains(t, rl.local, "old")
	assert.Contains(t, rl.local, "fresh")
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	client, err := ConnectRedis(addr, os.Getenv("REDIS_PASSWORD"), db)
	require.NoError(t, err)
	defer client.Close()

	max := 2
	r := limitedRouter(NewRateLimiter(client), "it-"+uuid.NewString(), max, 2*time.Second)

	for i := 0; i < max; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.1.0.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.1.0.1"))
}
