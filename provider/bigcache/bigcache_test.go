package bigcache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{LifeWindow: time.Minute, Shards: 16, MaxEntriesInWindow: 1000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	if _, ok, err := p.Get(ctx, "qs:customers:1"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "qs:customers:1", []byte("frame"), 0, 0); !ok || err != nil {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "qs:customers:1")
	if !ok || err != nil || !bytes.Equal(got, []byte("frame")) {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d", p.Len())
	}
	if err := p.Del(ctx, "qs:customers:1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Del(ctx, "qs:customers:1"); err != nil {
		t.Fatalf("deleting a missing key: %v", err)
	}
}

func TestRejectsMissingLifeWindow(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error")
	}
}
