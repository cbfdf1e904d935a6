package models

import "testing"

// Without a connected Redis client the cache must degrade to "unknown",
// never to a fabricated quantity, and writes must be silently dropped.

func TestGetStockFromCache_UnconnectedIsUnknown(t *testing.T) {
	quantity, found := GetStockFromCache(42)
	if found {
		t.Fatalf("expected a miss without a cache backend, got quantity %d", quantity)
	}
	if quantity != 0 {
		t.Fatalf("a miss must not carry a quantity, got %d", quantity)
	}
}

func TestCacheStock_UnconnectedIsSwallowed(t *testing.T) {
	// must not panic or block
	CacheStock(42, 7)
	UpdateStockInCache(42, 9)
	EvictStockFromCache(42)

	if _, found := GetStockFromCache(42); found {
		t.Fatal("writes without a backend must not materialize anywhere")
	}
}
