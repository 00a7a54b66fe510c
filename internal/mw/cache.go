package mw

import (
	"bytes"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"printer-docs-backend/internal/metrics"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps successful GET responses for a fixed time. Writes to the
// underlying data must call Flush.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
	// gen changes on every Flush; a response rendered across a flush is not stored.
	gen atomic.Uint64
}

// NewResponseCache returns a cache keeping entries for ttl. A zero ttl disables caching.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Flush drops every cached response.
func (rc *ResponseCache) Flush() {
	if rc != nil {
		rc.gen.Add(1)
		rc.store.Flush()
	}
}

// Cache is a middleware for in-memory caching of GET requests. Only the body,
// status and content type are replayed; transport headers such as
// Content-Encoding belong to the live response.
func Cache(rc *ResponseCache, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil || rc.ttl <= 0 || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if resp, found := rc.store.Get(key); found {
			m.RecordCache(true)
			cached := resp.(cachedResponse)
			c.Data(cached.status, cached.contentType, cached.body)
			c.Abort()
			return
		}
		m.RecordCache(false)
		gen := rc.gen.Load()

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 && rc.gen.Load() == gen {
			rc.store.Set(key, cachedResponse{
				status:      blw.Status(),
				contentType: blw.Header().Get("Content-Type"),
				body:        blw.body.Bytes(),
			}, rc.ttl)
		}
	}
}
