package memory

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New(nil)

	if _, ok, err := p.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	in := []byte("payload")
	if ok, err := p.Set(ctx, "k", in, 0, 0); !ok || err != nil {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	in[0] = 'X'
	got, ok, _ := p.Get(ctx, "k")
	if !ok || !bytes.Equal(got, []byte("payload")) {
		t.Fatalf("Get = %q ok=%v; stored value must not alias the input", got, ok)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("deleting a missing key: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d", p.Len())
	}
}

func TestTTLExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	p := New(func() time.Time { return now })

	_, _ = p.Set(ctx, "k", []byte("v"), 0, time.Minute)
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}
