package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
	}

	if err := c.Set(ctx, "k", []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v, want hit", ok, err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q, want payload", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry returned as hit")
	}
}

func TestNullCacheNeverStores(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("null cache returned a hit")
	}
}

func TestDefaultKeyerDeterministic(t *testing.T) {
	k := NewDefaultKeyer()
	opts := LayoutKeyOpts{CanvasWidth: 800, VerticalGap: 120, TopMargin: 40}

	a := k.LayoutKey("hash", opts)
	b := k.LayoutKey("hash", opts)
	if a != b {
		t.Errorf("keys differ for equal input: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "layout:") {
		t.Errorf("key %s missing layout prefix", a)
	}

	other := opts
	other.CanvasWidth = 900
	if k.LayoutKey("hash", other) == a {
		t.Error("different options produced the same key")
	}
	if k.LayoutKey("other", opts) == a {
		t.Error("different hash produced the same key")
	}
}

func TestArtifactKeySeparatesFormats(t *testing.T) {
	k := NewDefaultKeyer()
	dot := k.ArtifactKey("h", ArtifactKeyOpts{Format: "dot"})
	svg := k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"})
	if dot == svg {
		t.Error("formats share a cache key")
	}
}

func TestScopedKeyerPrefixes(t *testing.T) {
	k := NewScopedKeyer(nil, "process:demandes:")
	key := k.LayoutKey("h", LayoutKeyOpts{})
	if !strings.HasPrefix(key, "process:demandes:layout:") {
		t.Errorf("key %s missing scope prefix", key)
	}
}
