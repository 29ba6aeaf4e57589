package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key derives a stable cache key from a purpose label plus positional and
// named arguments. The arguments are serialized as canonical JSON (object
// keys sorted) and hashed, so equivalent calls produce identical keys
// regardless of map iteration order. The purpose label stays in the clear
// to allow prefix-scoped Clear.
func Key(purpose string, args []interface{}, kwargs map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("args=")
	b.WriteString(canonicalJSON(args))
	b.WriteString("|kwargs=")
	b.WriteString(canonicalJSON(kwargs))

	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s:%s", purpose, hex.EncodeToString(sum[:]))
}

// canonicalJSON serializes v with deterministic object key order at every
// nesting level. encoding/json already sorts map keys, but values decoded
// from JSON can hold json.RawMessage or nested maps, so we normalize first.
func canonicalJSON(v interface{}) string {
	normalized := normalize(v)
	data, err := json.Marshal(normalized)
	if err != nil {
		// Unserializable arguments still need a stable key.
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(t))
		for _, k := range keys {
			out[k] = normalize(t[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
