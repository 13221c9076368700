package keyspace

import "time"

// RawEntry is a fully materialized view of one keyspace entry, used by the
// persist package to write and rebuild snapshots without reaching into
// Store/Entry internals.
type RawEntry struct {
	Key       string
	Kind      Kind
	ExpiresAt time.Time // zero means no expiry
	Str       []byte
	List      [][]byte
	Hash      []HashPair
}

// Snapshot returns every live entry, lazily evicting any expired ones it
// encounters along the way.
func (s *Store) Snapshot() []RawEntry {
	now := time.Now()
	var out []RawEntry
	for b := range s.data {
		s.mu[b].Lock()
		for k, e := range s.data[b] {
			if e.isExpired(now) {
				delete(s.data[b], k)
				continue
			}

			raw := RawEntry{Key: k, Kind: e.kind, ExpiresAt: e.expiresAt}
			switch e.kind {
			case KindString:
				raw.Str = e.str
			case KindList:
				raw.List = e.listSlice()
			case KindHash:
				raw.Hash = make([]HashPair, 0, len(e.hash))
				for f, v := range e.hash {
					raw.Hash = append(raw.Hash, HashPair{Field: []byte(f), Value: v})
				}
			}
			out = append(out, raw)
		}
		s.mu[b].Unlock()
	}
	return out
}

// Clear empties every bucket.
func (s *Store) Clear() {
	for b := range s.data {
		s.mu[b].Lock()
		s.data[b] = make(map[string]*Entry)
		s.mu[b].Unlock()
	}
}

// ReplaceFrom atomically replaces s's contents with staging's: it takes
// every bucket lock of s, in bucket order, before swapping any bucket, so
// other callers see either the old keyspace or the new one, never a mix.
// staging is assumed unshared (built up by a LOAD in progress and never
// otherwise published), so only s's locks need to be taken. This is
// the atomic-swap variant of LOAD called for in §9: a malformed snapshot
// fails while parsing into staging, before s is ever touched, so a bad
// file cannot leave the live keyspace empty.
func (s *Store) ReplaceFrom(staging *Store) {
	for b := range s.data {
		s.mu[b].Lock()
	}
	for b := range s.data {
		s.data[b] = staging.data[b]
	}
	for b := range s.data {
		s.mu[b].Unlock()
	}
}

// RestoreString recreates a string entry with an absolute (not relative)
// expiry, used while replaying a snapshot file.
func (s *Store) RestoreString(key string, value []byte, expiresAt time.Time) {
	b := bucketFor(key)
	s.mu[b].Lock()
	defer s.mu[b].Unlock()
	e := newStringEntry(value)
	e.expiresAt = expiresAt
	s.data[b][key] = e
}

// RestoreList rebuilds a list entry by RPUSHing values in file order, so
// head-to-tail order is preserved, then applies the absolute expiry.
func (s *Store) RestoreList(key string, values [][]byte, expiresAt time.Time) {
	for _, v := range values {
		s.RPush(key, v)
	}
	if len(values) > 0 {
		s.setExpiryAbsolute(key, expiresAt)
	}
}

// RestoreHash rebuilds a hash entry field by field, then applies the
// absolute expiry.
func (s *Store) RestoreHash(key string, pairs []HashPair, expiresAt time.Time) {
	for _, p := range pairs {
		s.HSet(key, string(p.Field), p.Value)
	}
	if len(pairs) > 0 {
		s.setExpiryAbsolute(key, expiresAt)
	}
}

func (s *Store) setExpiryAbsolute(key string, at time.Time) {
	if at.IsZero() {
		return
	}
	b := bucketFor(key)
	s.mu[b].Lock()
	defer s.mu[b].Unlock()
	if e, ok := s.data[b][key]; ok {
		e.expiresAt = at
	}
}
