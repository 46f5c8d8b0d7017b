package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Cache key parameters
const (
	// keyPrefix namespaces cache keys for migration support
	keyPrefix = "tts_"
	// keyHashLen is the number of hash hex characters kept in the key
	keyHashLen = 16
)

// DeriveKey produces the deterministic cache key for one synthesis
// result. Options are canonicalized by sorting their keys before
// serialization, so map insertion order never changes the key, and the
// hash is stable across process restarts.
func DeriveKey(text, engine string, options map[string]any) string {
	input := engine + ":" + text + ":" + canonicalOptions(options)
	sum := sha256.Sum256([]byte(input))
	return keyPrefix + hex.EncodeToString(sum[:])[:keyHashLen]
}

// canonicalOptions serializes an options map with sorted keys.
func canonicalOptions(options map[string]any) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%q:%v", k, options[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
