package querysync

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestQueryTyped(t *testing.T) {
	c := newTestClient(t, nil)
	var (
		mu     sync.Mutex
		states []State[customer]
	)
	o, err := Query(context.Background(), c, K("customer", P{"id": "1"}),
		func(context.Context) (customer, error) { return customer{ID: "1", Name: "Ana"}, nil },
		func(s State[customer]) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer o.Unsubscribe()

	st, err := o.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if st.Data.Name != "Ana" || st.Loading() {
		t.Fatalf("state = %+v", st)
	}
	eventually(t, "typed success state", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1].Data.Name == "Ana"
	})
}

func TestQueryTypeMismatch(t *testing.T) {
	c := newTestClient(t, nil)
	key := K("customer", P{"id": "1"})
	if err := c.SetData(key, "not a customer"); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	o, err := Query(context.Background(), c, key,
		func(context.Context) (customer, error) { return customer{}, nil }, nil, Enabled(false))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	st := o.State()
	if st.HasData || !errors.Is(st.Err, ErrInvalidResultType) {
		t.Fatalf("state = %+v", st)
	}
}

func TestFetchOneShot(t *testing.T) {
	c := newTestClient(t, nil)
	calls := 0
	get := func(context.Context) (int, error) { calls++; return 42, nil }

	v, err := Fetch(context.Background(), c, K("answer"), get)
	if err != nil || v != 42 {
		t.Fatalf("Fetch = %d, %v", v, err)
	}
	if _, err := Fetch(context.Background(), c, K("answer"), get, Enabled(false)); err != nil {
		t.Fatalf("disabled Fetch with cached data: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
	if _, err := Fetch(context.Background(), c, K("missing"), get, Enabled(false)); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestFetchReturnsError(t *testing.T) {
	c := newTestClient(t, nil)
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), c, K("x"), func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
