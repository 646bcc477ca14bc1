package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/use-agent/stylegrab/models"
)

// entry holds a cached result with its creation timestamp.
type entry struct {
	result    *models.ScrapeResult
	createdAt time.Time
}

// Cache keeps recent scrape results in memory. It is safe for concurrent use.
// Entries expire after the configured TTL regardless of what callers ask for;
// the per-request max age can only be shorter.
type Cache struct {
	store *gocache.Cache
}

// New creates a Cache. Expired entries are purged every cleanupInterval.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{store: gocache.New(ttl, cleanupInterval)}
}

// Key derives a cache key from everything that changes the scrape output,
// request headers included: a Cookie or Authorization header can change what
// the page returns. Header names are compared case-insensitively.
func Key(url, engineName string, settleMs int, waitSelector string, headers map[string]string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(engineName))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(settleMs)))
	h.Write([]byte("|"))
	h.Write([]byte(waitSelector))

	pairs := make([]string, 0, len(headers))
	for name, value := range headers {
		pairs = append(pairs, strings.ToLower(name)+"="+value)
	}
	sort.Strings(pairs)
	for _, p := range pairs {
		h.Write([]byte("|"))
		h.Write([]byte(strconv.Quote(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result if it is younger than maxAgeMs milliseconds.
// maxAgeMs <= 0 never hits.
func (c *Cache) Get(key string, maxAgeMs int) (*models.ScrapeResult, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.result, true
}

// Set stores a result with the default TTL.
func (c *Cache) Set(key string, result *models.ScrapeResult) {
	c.store.SetDefault(key, &entry{result: result, createdAt: time.Now()})
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
