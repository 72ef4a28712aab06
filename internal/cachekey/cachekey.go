// Package cachekey produces deterministic fingerprints for parameter sets.
//
// Keys are 16 hexadecimal characters (64 bits) derived from a canonical
// serialization of the input: map keys are sorted at every level, so insertion
// order never affects the result. Collisions are a theoretical risk accepted
// for this workload's namespace size; keys are opaque identifiers used only
// as filesystem-safe path components.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// KeyLength is the number of hex characters in a generated key.
const KeyLength = 16

// Generate fingerprints the parameter set. Every field that affects the
// derived output must be present; omitting one is a correctness bug that
// manifests as a stale cache hit.
func Generate(params map[string]any) string {
	var b strings.Builder
	writeCanonical(&b, params)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

func writeCanonical(b *strings.Builder, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv(k))
			b.WriteByte(':')
			writeCanonical(b, v[k])
		}
		b.WriteByte('}')
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv(k))
			b.WriteByte(':')
			b.WriteString(strconv(v[k]))
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv(item))
		}
		b.WriteByte(']')
	default:
		// Scalars serialize via encoding/json for a stable representation.
		data, err := json.Marshal(v)
		if err != nil {
			b.WriteString(fmt.Sprintf("%v", v))
			return
		}
		b.Write(data)
	}
}

func strconv(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
