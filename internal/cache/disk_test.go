package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_SetGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "presets")
	c := NewDiskCache(dir, time.Hour)
	key := Key("companyData", "presets")

	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	if err := c.Set(key, []byte(`["Gala"]`), 0); err != nil {
		t.Fatal(err)
	}

	// A second instance over the same directory sees the entry
	got, ok := NewDiskCache(dir, time.Hour).Get(key)
	if !ok || string(got) != `["Gala"]` {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if err := c.Delete(key); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("hit after delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}

	if err := c.Set("forever", []byte("v"), -1); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("forever"); !ok {
		t.Error("entry without expiry missing")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	if err := os.WriteFile(filepath.Join(dir, "k.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("corrupt entry returned")
	}
	if _, err := os.Stat(filepath.Join(dir, "k.json")); !os.IsNotExist(err) {
		t.Errorf("corrupt entry not removed: %v", err)
	}
}

func TestLayered_PromotesHits(t *testing.T) {
	near := NewMemoryCache(time.Minute, time.Minute)
	far := NewDiskCache(t.TempDir(), time.Hour)
	l := NewLayered(near, nil, far)

	if err := far.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	got, ok := l.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := near.Get("k"); !ok {
		t.Error("hit not promoted to the nearer layer")
	}

	if err := l.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := far.Get("k"); ok {
		t.Error("delete did not reach every layer")
	}
}

func TestLayered_SetWritesEveryLayer(t *testing.T) {
	near := NewMemoryCache(time.Minute, time.Minute)
	far := NewDiskCache(t.TempDir(), time.Hour)
	l := NewLayered(near, far)

	if err := l.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	for name, c := range map[string]Cache{"memory": near, "disk": far} {
		if _, ok := c.Get("k"); !ok {
			t.Errorf("%s layer missing entry", name)
		}
	}
	if err := l.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Get("k"); ok {
		t.Error("hit after Clear")
	}
}
