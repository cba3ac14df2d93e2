// Package cache implements the keyed query/mutation cache: deduplicated
// fetches, stale-while-revalidate freshness, retry with exponential
// backoff, retention of unobserved entries, and the optimistic mutation
// protocol with snapshot rollback.
package cache

import "strings"

// keySep is a byte that cannot appear in key parts coming from callers.
const keySep = "\x1f"

// Key is an ordered, composite cache identifier, e.g.
// NewKey("items", "detail", id) or NewKey("items", "list", filter).
// Keys sharing a prefix form a family, which mutations fan out across.
type Key []string

// NewKey builds a Key from ordered parts.
func NewKey(parts ...string) Key {
	return Key(parts)
}

// String encodes the key for map storage. Order-sensitive.
func (k Key) String() string {
	return strings.Join(k, keySep)
}

// Child returns a new key with extra parts appended.
func (k Key) Child(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

func splitKey(encoded string) []string {
	return strings.Split(encoded, keySep)
}

// hasPrefix reports whether the encoded key belongs to the prefix family.
// An exact match counts.
func hasPrefix(encoded string, prefix Key) bool {
	p := prefix.String()
	if encoded == p {
		return true
	}
	return strings.HasPrefix(encoded, p+keySep)
}
