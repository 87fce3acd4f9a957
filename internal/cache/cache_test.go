package cache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestKeyDeterministic(t *testing.T) {
	k1 := KeyString("quality", "some ocr text")
	k2 := KeyString("quality", "some ocr text")
	if k1 != k2 {
		t.Errorf("same content should produce same key: %s vs %s", k1, k2)
	}

	k3 := KeyString("vision", "some ocr text")
	if k1 == k3 {
		t.Error("different namespaces should produce different keys")
	}

	k4 := KeyString("quality", "other text")
	if k1 == k4 {
		t.Error("different content should produce different keys")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := KeyString("test", "content")
	payload := []byte(`{"score": 8}`)

	if err := store.Set(ctx, key, payload, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch: got %q want %q", got, payload)
	}
}

func TestStoreExpiry(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := KeyString("test", "expiring")

	if err := store.Set(ctx, key, []byte("x"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expired entry should miss")
	}
}

func TestStoreIdempotentSet(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := KeyString("test", "racing")

	// Racing workers computing the same key write the same value
	for i := 0; i < 3; i++ {
		if err := store.Set(ctx, key, []byte("same"), time.Hour); err != nil {
			t.Fatalf("Set %d failed: %v", i, err)
		}
	}

	got, ok, _ := store.Get(ctx, key)
	if !ok || string(got) != "same" {
		t.Errorf("expected stable value, got %q (hit=%v)", got, ok)
	}
}

func TestStoreDeleteAndPrune(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "a", []byte("1"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "b", []byte("2"), time.Hour); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting absent key should not error: %v", err)
	}

	n, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned row, got %d", n)
	}

	_, ok, _ := store.Get(ctx, "b")
	if !ok {
		t.Error("unexpired entry should survive prune")
	}
}

func TestMemoryCache(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := m.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Errorf("expected hit with v, got %q (hit=%v)", got, ok)
	}

	if err := m.Set(ctx, "expired", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Get(ctx, "expired"); ok {
		t.Error("expired entry should miss")
	}

	_ = m.Delete(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("deleted entry should miss")
	}
}

func TestCountingCache(t *testing.T) {
	counting := NewCounting(NewMemory())
	ctx := context.Background()

	_ = counting.Set(ctx, "k", []byte("v"), time.Hour)

	if _, ok, _ := counting.Get(ctx, "k"); !ok {
		t.Fatal("expected hit")
	}
	if _, ok, _ := counting.Get(ctx, "absent"); ok {
		t.Fatal("expected miss")
	}

	if counting.Hits() != 1 {
		t.Errorf("expected 1 hit, got %d", counting.Hits())
	}
	if counting.Misses() != 1 {
		t.Errorf("expected 1 miss, got %d", counting.Misses())
	}
}
