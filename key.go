package querysync

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// P holds key parameters. Values are scalars (string, bool, integers, floats,
// nil) or nested P / map[string]any.
type P map[string]any

// Key identifies a cacheable read: a namespace plus parameters.
// Two keys are equal iff their canonical String() is equal.
type Key struct {
	Namespace string
	Params    P
}

// K builds a key. Multiple parameter maps are merged left to right.
func K(namespace string, params ...P) Key {
	return Key{Namespace: namespace, Params: merge(params)}
}

// String returns the canonical serialization: map keys sorted recursively and
// strings quoted, so "42" and 42 are different keys.
func (k Key) String() string {
	return canonical(k.Namespace, k.Params)
}

// Pattern returns a pattern matching exactly the parameters of k (and any
// key carrying extra parameters on top of them).
func (k Key) Pattern() Pattern {
	return Pattern{Namespace: k.Namespace, Params: k.Params}
}

// Pattern is a partial key used to match entries on invalidation.
// Params absent from the pattern are wildcards.
type Pattern struct {
	Namespace string
	Params    P
}

// Match builds a pattern for namespace restricted by the given parameters.
func Match(namespace string, params ...P) Pattern {
	return Pattern{Namespace: namespace, Params: merge(params)}
}

// Matches reports whether k belongs to p: same namespace and every pattern
// parameter present in k with an equal value.
func (p Pattern) Matches(k Key) bool {
	if p.Namespace != k.Namespace {
		return false
	}
	for name, want := range p.Params {
		got, ok := k.Params[name]
		if !ok {
			return false
		}
		if canonicalValue(want) != canonicalValue(got) {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	return canonical(p.Namespace, p.Params)
}

func matchesAny(patterns []Pattern, k Key) bool {
	for _, p := range patterns {
		if p.Matches(k) {
			return true
		}
	}
	return false
}

func merge(params []P) P {
	switch len(params) {
	case 0:
		return nil
	case 1:
		return params[0]
	}
	out := make(P)
	for _, p := range params {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

func canonical(namespace string, params P) string {
	if len(params) == 0 {
		return namespace
	}
	var b strings.Builder
	b.WriteString(namespace)
	writeMap(&b, params)
	return b.String()
}

func canonicalValue(v any) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeMap(b *strings.Builder, m map[string]any) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	b.WriteByte('{')
	for i, k := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		writeValue(b, m[k])
	}
	b.WriteByte('}')
}

func writeValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(strconv.Quote(x))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int8:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int16:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint8:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint16:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(x, 10))
	case float32:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case P:
		writeMap(b, x)
	case map[string]any:
		writeMap(b, x)
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, s := range x {
			m[k] = s
		}
		writeMap(b, m)
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, e)
		}
		b.WriteByte(']')
	case fmt.Stringer:
		b.WriteString(strconv.Quote(x.String()))
	default:
		fmt.Fprintf(b, "%#v", x)
	}
}
