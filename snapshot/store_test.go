package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thomasjacksonsantos/querysync/codec"
	"github.com/thomasjacksonsantos/querysync/genstore"
	"github.com/thomasjacksonsantos/querysync/internal/keys"
	"github.com/thomasjacksonsantos/querysync/internal/wire"
	"github.com/thomasjacksonsantos/querysync/provider/memory"
)

type customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, ns string, mp *memory.Provider, mut func(*Options[customer])) *Store[customer] {
	t.Helper()
	opts := Options[customer]{
		Namespace: ns,
		Provider:  mp,
		Codec:     codec.JSON[customer]{},
		Clock:     func() time.Time { return fixedNow },
	}
	if mut != nil {
		mut(&opts)
	}
	s, err := New[customer](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestNewValidates(t *testing.T) {
	mp := memory.New(nil)
	tests := map[string]Options[customer]{
		"namespace": {Provider: mp, Codec: codec.JSON[customer]{}},
		"provider":  {Namespace: "customer", Codec: codec.JSON[customer]{}},
		"codec":     {Namespace: "customer", Provider: mp},
		"ttl":       {Namespace: "customer", Provider: mp, Codec: codec.JSON[customer]{}, TTL: -time.Second},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := New(opts); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

// CAS write, read, invalidation and stale write skip.
func TestSetWithGenFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "customer", memory.New(nil), nil)

	k := `customer{id="1"}`
	v := customer{ID: "1", Name: "Ana"}

	if _, _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get miss expected, got ok=%v err=%v", ok, err)
	}

	obs, err := s.Generation(ctx)
	if err != nil || obs != 0 {
		t.Fatalf("Generation = %d, %v; want 0", obs, err)
	}
	if err := s.SetWithGen(ctx, k, v, obs); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}

	got, at, ok, err := s.Get(ctx, k)
	if err != nil || !ok || got != v {
		t.Fatalf("Get after set: ok=%v err=%v got=%v", ok, err, got)
	}
	if !at.Equal(fixedNow) {
		t.Fatalf("storedAt = %s, want %s", at, fixedNow)
	}

	if err := s.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, _, ok, _ := s.Get(ctx, k); ok {
		t.Fatalf("Get after invalidate should miss")
	}

	// value fetched before the invalidation
	if err := s.SetWithGen(ctx, k, v, obs); err != nil {
		t.Fatalf("SetWithGen stale: %v", err)
	}
	if _, _, ok, _ := s.Get(ctx, k); ok {
		t.Fatalf("stale write should not populate the store")
	}

	obs2, _ := s.Generation(ctx)
	if err := s.SetWithGen(ctx, k, v, obs2); err != nil {
		t.Fatalf("SetWithGen (fresh): %v", err)
	}
	if _, _, ok, _ := s.Get(ctx, k); !ok {
		t.Fatalf("fresh write should be readable")
	}
}

func TestInvalidateDeletesNamedKeys(t *testing.T) {
	ctx := context.Background()
	mp := memory.New(nil)
	s := newTestStore(t, "customer", mp, nil)

	_ = s.SetWithGen(ctx, "a", customer{ID: "a"}, 0)
	_ = s.SetWithGen(ctx, "b", customer{ID: "b"}, 0)
	if err := s.Invalidate(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := mp.Get(ctx, keys.Storage("customer", "a")); ok {
		t.Fatalf("named key not deleted")
	}
	if _, ok, _ := mp.Get(ctx, keys.Storage("customer", "b")); !ok {
		t.Fatalf("other key should stay until read")
	}
	if _, _, ok, _ := s.Get(ctx, "b"); ok {
		t.Fatalf("other key must fail the generation check")
	}
	if _, ok, _ := mp.Get(ctx, keys.Storage("customer", "b")); ok {
		t.Fatalf("outdated snapshot not deleted on read")
	}
}

// Corrupt bytes and outdated frames are deleted and missed.
func TestSelfHealOnCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := memory.New(nil)
	s := newTestStore(t, "customer", mp, nil)

	k := "bad"
	storageKey := keys.Storage("customer", k)

	_, _ = mp.Set(ctx, storageKey, []byte("not-wire-format"), 1, time.Minute)
	if _, _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get on corrupt should miss, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := mp.Get(ctx, storageKey); ok {
		t.Fatalf("corrupt entry was not deleted")
	}

	_, _ = mp.Set(ctx, storageKey, wire.Encode(0, fixedNow, []byte("{not json")), 1, time.Minute)
	if _, _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get on undecodable should miss, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := mp.Get(ctx, storageKey); ok {
		t.Fatalf("undecodable entry was not deleted")
	}
}

type failingGens struct{ genstore.GenStore }

var errGens = errors.New("gens down")

func (failingGens) Bump(context.Context, string) (uint64, error) { return 0, errGens }

func TestInvalidateError(t *testing.T) {
	ctx := context.Background()
	gens := genstore.NewLocalGenStore(0, 0)
	s := newTestStore(t, "customer", memory.New(nil), func(o *Options[customer]) {
		o.GenStore = failingGens{gens}
	})

	err := s.Invalidate(ctx, "x")
	var ie *InvalidateError
	if !errors.As(err, &ie) || ie.Namespace != "customer" {
		t.Fatalf("err = %v, want *InvalidateError", err)
	}
	if !errors.Is(err, errGens) {
		t.Fatalf("InvalidateError does not unwrap to the bump error")
	}
}

func TestSharedProviderStaysOpen(t *testing.T) {
	ctx := context.Background()
	mp := memory.New(nil)
	a := newTestStore(t, "customer", mp, func(o *Options[customer]) { o.SharedProvider = true })
	b := newTestStore(t, "customers", mp, func(o *Options[customer]) { o.SharedProvider = true })

	_ = b.SetWithGen(ctx, "k", customer{ID: "k"}, 0)
	if err := a.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, ok, _ := b.Get(ctx, "k"); !ok {
		t.Fatalf("closing one store cleared the shared provider")
	}
}
