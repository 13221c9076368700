package keyspace

import "path"

// pathMatch wraps path.Match for KEYS pattern matching. Redis glob syntax
// and path.Match syntax coincide for the common cases (*, ?, [...]), except
// that * and ? never match a "/" in the key; a "/" in the pattern matches
// only a literal "/". Keys in this store carry no path semantics.
func pathMatch(pattern, key string) (bool, error) {
	return path.Match(pattern, key)
}
