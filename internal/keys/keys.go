// Package keys derives provider storage keys from canonical query keys.
package keys

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Storage returns "qs:<namespace>:<xxhash64 of canonical key, hex>".
func Storage(namespace, canonical string) string {
	return "qs:" + namespace + ":" + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}
