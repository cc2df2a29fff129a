package querysync

import "testing"

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"namespace only", K("customers"), "customers"},
		{"string param quoted", K("customer", P{"id": "42"}), `customer{id="42"}`},
		{"int param bare", K("customer", P{"id": 42}), `customer{id=42}`},
		{"sorted", K("customers", P{"pageSize": 10, "page": 1}), `customers{page=1,pageSize=10}`},
		{"nested sorted", K("customers", P{"filters": map[string]any{"z": true, "a": nil}}), `customers{filters={a=null,z=true}}`},
		{"merged", K("customers", P{"page": 1}, P{"search": "ana"}), `customers{page=1,search="ana"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.String(); got != tc.want {
				t.Fatalf("String() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestKeyEqualityIgnoresMapOrder(t *testing.T) {
	a := K("customers", P{"page": 1, "filters": P{"status": "active", "city": "Recife"}})
	b := K("customers", P{"filters": map[string]any{"city": "Recife", "status": "active"}, "page": 1})
	if a.String() != b.String() {
		t.Fatalf("%s != %s", a, b)
	}
}

func TestPatternMatches(t *testing.T) {
	item := K("customer", P{"id": "7"})
	page := K("customers", P{"page": 2, "filters": P{"status": "active"}})

	tests := []struct {
		name    string
		pattern Pattern
		key     Key
		want    bool
	}{
		{"namespace wildcard", Match("customers"), page, true},
		{"other namespace", Match("customer"), page, false},
		{"exact id", Match("customer", P{"id": "7"}), item, true},
		{"different id", Match("customer", P{"id": "8"}), item, false},
		{"type sensitive", Match("customer", P{"id": 7}), item, false},
		{"missing param", Match("customer", P{"tenant": "a"}), item, false},
		{"nested value", Match("customers", P{"filters": P{"status": "active"}}), page, true},
		{"key pattern", item.Pattern(), item, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pattern.Matches(tc.key); got != tc.want {
				t.Fatalf("%s matches %s = %v, want %v", tc.pattern, tc.key, got, tc.want)
			}
		})
	}
}
