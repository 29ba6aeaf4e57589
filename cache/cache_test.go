package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestGetOrFetchCachesWithinTTL tests that a second call within the TTL
// serves the stored value without re-fetching
func TestGetOrFetchCachesWithinTTL(t *testing.T) {
	c := New(nil)

	fetches := 0
	fetch := func(ctx context.Context) (interface{}, error) {
		fetches++
		return "stations", nil
	}

	v, err := c.GetOrFetch(context.Background(), "stations:abc", time.Minute, fetch)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if v != "stations" {
		t.Errorf("expected fetched value, got %v", v)
	}

	v, err = c.GetOrFetch(context.Background(), "stations:abc", time.Minute, fetch)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if v != "stations" {
		t.Errorf("expected cached value, got %v", v)
	}
	if fetches != 1 {
		t.Errorf("expected 1 fetch, got %d", fetches)
	}
}

// TestGetOrFetchRefetchesAfterExpiry tests TTL-at-read expiry
func TestGetOrFetchRefetchesAfterExpiry(t *testing.T) {
	c := New(nil)

	fetches := 0
	fetch := func(ctx context.Context) (interface{}, error) {
		fetches++
		return fetches, nil
	}

	_, _ = c.GetOrFetch(context.Background(), "k", 20*time.Millisecond, fetch)
	time.Sleep(30 * time.Millisecond)

	v, err := c.GetOrFetch(context.Background(), "k", 20*time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if fetches != 2 {
		t.Errorf("expected expired entry to refetch, got %d fetches", fetches)
	}
	if v != 2 {
		t.Errorf("expected fresh value, got %v", v)
	}
}

// TestTTLIsCallerParameter tests that the same entry can be fresh for one
// caller and stale for another
func TestTTLIsCallerParameter(t *testing.T) {
	c := New(nil)
	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k", time.Minute); !ok {
		t.Error("expected entry fresh under a long TTL")
	}
	if _, ok := c.Get("k", 10*time.Millisecond); ok {
		t.Error("expected entry stale under a short TTL")
	}
	// The stale read deleted the entry.
	if _, ok := c.Get("k", time.Minute); ok {
		t.Error("expected expired entry removed on read")
	}
}

// TestGetOrFetchErrorNotCached tests that fetch errors are returned
// unwrapped and leave the cache empty
func TestGetOrFetchErrorNotCached(t *testing.T) {
	c := New(nil)

	boom := errors.New("api down")
	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fetch error back, got %v", err)
	}

	fetches := 0
	_, _ = c.GetOrFetch(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		fetches++
		return "ok", nil
	})
	if fetches != 1 {
		t.Error("failed fetch should not have stored anything")
	}
}

// TestClearPrefix tests prefix-scoped invalidation with counts
func TestClearPrefix(t *testing.T) {
	c := New(nil)
	c.Set("stations:a", 1)
	c.Set("stations:b", 2)
	c.Set("rates:a", 3)

	if n := c.Clear("stations:"); n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if _, ok := c.Get("rates:a", time.Minute); !ok {
		t.Error("unrelated prefix should survive")
	}
	if n := c.Clear(""); n != 1 {
		t.Errorf("expected 1 removed on full clear, got %d", n)
	}
}

// TestStats tests hit/miss counters
func TestStats(t *testing.T) {
	c := New(nil)
	c.Set("k", "v")

	c.Get("k", time.Minute)
	c.Get("absent", time.Minute)

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Entries != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

// TestKeyCanonicalization tests that argument order does not change keys
func TestKeyCanonicalization(t *testing.T) {
	a := Key("geocode_zip", []interface{}{"80202"}, map[string]interface{}{
		"country": "US",
		"limit":   1,
	})
	b := Key("geocode_zip", []interface{}{"80202"}, map[string]interface{}{
		"limit":   1,
		"country": "US",
	})
	if a != b {
		t.Errorf("expected identical keys for reordered kwargs:\n%s\n%s", a, b)
	}

	c := Key("geocode_zip", []interface{}{"80203"}, map[string]interface{}{
		"country": "US",
		"limit":   1,
	})
	if a == c {
		t.Error("expected different args to produce different keys")
	}

	d := Key("geocode_state", []interface{}{"80202"}, map[string]interface{}{
		"country": "US",
		"limit":   1,
	})
	if a == d {
		t.Error("expected different purposes to produce different keys")
	}
}

// TestKeyPrefixScoping tests that purpose labels survive in the clear for
// Clear(prefix) to match on
func TestKeyPrefixScoping(t *testing.T) {
	k := Key("stations_by_zip", []interface{}{"80202"}, nil)
	if len(k) < len("stations_by_zip:") || k[:len("stations_by_zip:")] != "stations_by_zip:" {
		t.Errorf("expected purpose prefix in key, got %q", k)
	}

	k2 := Key("stations_by_zip", []interface{}{
		map[string]interface{}{"zip": "80202", "fuel": "ELEC"},
	}, nil)
	k3 := Key("stations_by_zip", []interface{}{
		map[string]interface{}{"fuel": "ELEC", "zip": "80202"},
	}, nil)
	if k2 != k3 {
		t.Error("nested map key order must not change the derived key")
	}
}
