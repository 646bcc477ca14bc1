package cache

import (
	"testing"
	"time"

	"github.com/use-agent/stylegrab/models"
)

func TestKey_DistinguishesInputs(t *testing.T) {
	base := Key("https://example.com", "rod", 0, "", nil)
	others := []string{
		Key("https://example.org", "rod", 0, "", nil),
		Key("https://example.com", "static", 0, "", nil),
		Key("https://example.com", "rod", 500, "", nil),
		Key("https://example.com", "rod", 0, "#ready", nil),
	}
	for i, k := range others {
		if k == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
	if base != Key("https://example.com", "rod", 0, "", nil) {
		t.Error("Key is not deterministic")
	}
}

func TestKey_Headers(t *testing.T) {
	anon := Key("https://example.com", "rod", 0, "", nil)
	alice := Key("https://example.com", "rod", 0, "", map[string]string{"Cookie": "session=alice"})
	bob := Key("https://example.com", "rod", 0, "", map[string]string{"Cookie": "session=bob"})
	if alice == anon || alice == bob {
		t.Error("headers must be part of the key")
	}

	a := Key("u", "rod", 0, "", map[string]string{"Cookie": "c=1", "Authorization": "Bearer x"})
	b := Key("u", "rod", 0, "", map[string]string{"authorization": "Bearer x", "cookie": "c=1"})
	if a != b {
		t.Error("header order and name case should not change the key")
	}
	if Key("u", "rod", 0, "", map[string]string{}) != Key("u", "rod", 0, "", nil) {
		t.Error("empty and nil headers should share a key")
	}
}

func TestCache_GetSet(t *testing.T) {
	c := New(time.Hour, time.Minute)
	key := Key("https://example.com", "rod", 0, "", nil)
	res := &models.ScrapeResult{URL: "https://example.com", ElementCount: 2}

	if _, hit := c.Get(key, 60_000); hit {
		t.Fatal("empty cache should miss")
	}
	c.Set(key, res)

	got, hit := c.Get(key, 60_000)
	if !hit || got != res {
		t.Fatalf("Get = %v, %v; want stored result", got, hit)
	}
	if _, hit := c.Get(key, 0); hit {
		t.Error("max age 0 should bypass the cache")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_MaxAge(t *testing.T) {
	c := New(time.Hour, time.Minute)
	c.Set("k", &models.ScrapeResult{})
	time.Sleep(15 * time.Millisecond)

	if _, hit := c.Get("k", 5); hit {
		t.Error("entry older than max age should miss")
	}
	if _, hit := c.Get("k", 60_000); !hit {
		t.Error("entry younger than max age should hit")
	}
}

func TestCache_TTL(t *testing.T) {
	c := New(10*time.Millisecond, time.Minute)
	c.Set("k", &models.ScrapeResult{})
	time.Sleep(25 * time.Millisecond)

	if _, hit := c.Get("k", 60_000); hit {
		t.Error("entry past the TTL should miss")
	}
}
