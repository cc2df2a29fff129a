package keys

import (
	"strings"
	"testing"
)

func TestStorageIsStableAndScoped(t *testing.T) {
	a := Storage("customer", `customer{id="7"}`)
	if a != Storage("customer", `customer{id="7"}`) {
		t.Fatalf("not deterministic")
	}
	if a == Storage("customer", `customer{id=7}`) {
		t.Fatalf("distinct canonical keys collided")
	}
	if !strings.HasPrefix(a, "qs:customer:") {
		t.Fatalf("unexpected prefix: %s", a)
	}
	if long := Storage("customers", strings.Repeat("x", 4096)); len(long) > len("qs:customers:")+16 {
		t.Fatalf("hash not bounded: %d", len(long))
	}
}
