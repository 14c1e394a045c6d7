package cache

import (
	"testing"
	"time"
)

func TestGetInstance(t *testing.T) {
	inst := GetInstance()
	if inst == nil {
		t.Fatal("GetInstance returned nil")
	}
	if GetInstance() != inst {
		t.Error("GetInstance should return same instance")
	}
}

func TestSet_Get(t *testing.T) {
	c := NewCache()
	c.Set("k", "val", 0)
	got, ok := c.Get("k")
	if !ok || got != "val" {
		t.Fatalf("Get = %v, %v; want val, true", got, ok)
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("key still present after Delete")
	}
}

func TestExpiry(t *testing.T) {
	c := NewCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", 1, time.Minute)
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired key returned")
	}
}

func TestAdd_SuppressesWithinWindow(t *testing.T) {
	c := NewCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := Key("LOW_STOCK", 1, 2, 3)
	if !c.Add(key, true, time.Hour) {
		t.Fatal("first Add should succeed")
	}
	if c.Add(key, true, time.Hour) {
		t.Error("second Add within window should fail")
	}
	now = now.Add(61 * time.Minute)
	if !c.Add(key, true, time.Hour) {
		t.Error("Add after expiry should succeed")
	}
}

func TestPurge(t *testing.T) {
	c := NewCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("a", 1, time.Second)
	c.Set("b", 2, 0)
	now = now.Add(time.Minute)
	if n := c.Purge(); n != 1 {
		t.Errorf("Purge = %d, want 1", n)
	}
}

func TestKey(t *testing.T) {
	if got := Key("a", 1, true); got != "a|1|true" {
		t.Errorf("Key = %q", got)
	}
}
