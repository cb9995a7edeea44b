package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
)

// Login throttling for the console. Counters live in process memory:
// the console is a single-instance surface and a restart resetting the
// windows is acceptable.

type slidingWindow struct {
	mu         sync.Mutex
	timestamps []int64
}

// hit prunes entries outside the window and records the attempt.
// Returns false when the window is already full.
func (w *slidingWindow) hit(now, cutoff int64, limit int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept

	if len(w.timestamps) >= limit {
		return false
	}
	w.timestamps = append(w.timestamps, now)
	return true
}

var loginWindows sync.Map

// RateLimitByIP throttles by client address.
func RateLimitByIP(limit int, window time.Duration) gin.HandlerFunc {
	return rateLimitWithKey(limit, window, func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	})
}

// RateLimitByJSONField throttles by a string field of the JSON body, so
// a guessing run against one account is capped regardless of source
// address. Requests without the field count against the client address.
func RateLimitByJSONField(field string, limit int, window time.Duration) gin.HandlerFunc {
	field = strings.TrimSpace(field)
	return rateLimitWithKey(limit, window, func(c *gin.Context) string {
		value := extractJSONField(c, field)
		if value == "" {
			return "json:" + field + ":missing:" + c.ClientIP()
		}
		return "json:" + field + ":" + strings.ToLower(value)
	})
}

func rateLimitWithKey(limit int, window time.Duration, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		entryAny, _ := loginWindows.LoadOrStore(keyFn(c), &slidingWindow{})
		entry := entryAny.(*slidingWindow)

		now := time.Now().UnixNano()
		if !entry.hit(now, now-window.Nanoseconds(), limit) {
			response.Fail(c, 429, response.ErrInternal, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractJSONField reads a top-level string field from the body and
// restores the body for the handler.
func extractJSONField(c *gin.Context, field string) string {
	if field == "" || c.Request == nil || c.Request.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	if len(raw) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}

	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
