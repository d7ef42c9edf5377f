package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss")
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute, "tag-a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("get: %q %v %v", value, ok, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemoryInvalidateTags(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute, "user:1")
	_ = c.Set(ctx, "b", []byte("2"), time.Minute, "user:1", "user:2")
	_ = c.Set(ctx, "c", []byte("3"), time.Minute, "user:2")

	if err := c.InvalidateTags(ctx, "user:1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("entry a should be gone")
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatalf("entry b should be gone")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Fatalf("entry c must survive")
	}
}
