// Package keyspace implements the typed keyspace: a sharded hash table
// mapping keys to tagged, TTL-bearing entries (string, list or hash).
package keyspace

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
)

// bucketsCount is a power-of-two shard count sized to keep per-bucket
// contention low under concurrent access.
const bucketsCount = 1024

var (
	// ErrWrongType is returned when an operation targets a key whose stored
	// kind doesn't match the operation (e.g. LPUSH on a string key).
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	// ErrNotInteger is returned by INCR/DECR when the stored string isn't a
	// valid signed decimal, or when applying the delta would overflow int64.
	ErrNotInteger = errors.New("value is not an integer or out of range")
	// ErrInvalidExpire is returned by EXPIRE for a negative seconds value.
	ErrInvalidExpire = errors.New("invalid expire time")
)

// Store is the sharded keyspace. Each bucket has its own mutex so unrelated
// keys rarely contend; every public method is atomic for the single key (or
// keys) it touches.
type Store struct {
	mu   [bucketsCount]sync.RWMutex
	data [bucketsCount]map[string]*Entry
}

// New constructs an empty Store.
func New() *Store {
	s := &Store{}
	for i := range s.data {
		s.data[i] = make(map[string]*Entry)
	}
	return s
}

func bucketFor(key string) int {
	return int(xxhash.ChecksumString64(key) % bucketsCount)
}

// lookup returns the live (non-expired) entry for key, lazily deleting it
// first if it has expired. Every public read/write goes through this so
// EXISTS sees exactly what a successful read sees (§9 open question).
func (s *Store) lookup(bucket int, key string, now time.Time) *Entry {
	e, ok := s.data[bucket][key]
	if !ok {
		return nil
	}
	if e.isExpired(now) {
		delete(s.data[bucket], key)
		return nil
	}
	return e
}

// Set replaces any existing entry with a fresh string entry, clearing TTL.
func (s *Store) Set(key string, value []byte) {
	b := bucketFor(key)
	s.mu[b].Lock()
	defer s.mu[b].Unlock()
	s.data[b][key] = newStringEntry(value)
}

// Get returns the string value at key, or ok=false if absent, expired, or
// not a string.
func (s *Store) Get(key string) (value []byte, ok bool) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil || e.kind != KindString {
		return nil, false
	}
	return e.str, true
}

// Exists reports whether a live entry exists at key, of any kind.
func (s *Store) Exists(key string) bool {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()
	return s.lookup(b, key, now) != nil
}

// Delete removes key and reports whether a live entry was removed.
func (s *Store) Delete(key string) bool {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	if s.lookup(b, key, now) == nil {
		return false
	}
	delete(s.data[b], key)
	return true
}

// Incr adds 1 to the integer stored at key, creating it ("0") if absent.
func (s *Store) Incr(key string) (int64, error) {
	return s.incrBy(key, 1)
}

// Decr subtracts 1 from the integer stored at key, creating it ("0") if absent.
func (s *Store) Decr(key string) (int64, error) {
	return s.incrBy(key, -1)
}

func (s *Store) incrBy(key string, delta int64) (int64, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		e = newStringEntry([]byte("0"))
		s.data[b][key] = e
	}
	if e.kind != KindString {
		return 0, ErrWrongType
	}

	n, err := strconv.ParseInt(string(e.str), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}

	result := n + delta
	if (delta > 0 && result < n) || (delta < 0 && result > n) {
		return 0, ErrNotInteger
	}

	e.str = []byte(strconv.FormatInt(result, 10))
	return result, nil
}

// Expire sets key's TTL to seconds from now; returns false if key doesn't
// live. Negative seconds is rejected with ErrInvalidExpire per §7.
func (s *Store) Expire(key string, seconds int64) (bool, error) {
	if seconds < 0 {
		return false, ErrInvalidExpire
	}

	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return false, nil
	}
	e.expiresAt = now.Add(time.Duration(seconds) * time.Second)
	return true, nil
}

// TTL returns -2 if key doesn't live, -1 if it's persistent, else the
// floor-rounded, strictly-positive seconds remaining.
func (s *Store) TTL(key string) int64 {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return -2
	}
	if e.expiresAt.IsZero() {
		return -1
	}

	remaining := e.expiresAt.Sub(now)
	secs := int64(remaining / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Persist clears key's TTL; returns true iff a live entry existed and had one.
func (s *Store) Persist(key string) bool {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil || e.expiresAt.IsZero() {
		return false
	}
	e.expiresAt = time.Time{}
	return true
}

// LPush creates the list entry on first write and errors WRONGTYPE if key
// already holds a non-list entry. RPush is the tail-end counterpart.
func (s *Store) LPush(key string, value []byte) (int64, error) {
	return s.listPush(key, value, true)
}

func (s *Store) RPush(key string, value []byte) (int64, error) {
	return s.listPush(key, value, false)
}

func (s *Store) listPush(key string, value []byte, left bool) (int64, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		e = newListEntry()
		s.data[b][key] = e
	} else if e.kind != KindList {
		return 0, ErrWrongType
	}

	if left {
		e.leftPush(value)
	} else {
		e.rightPush(value)
	}
	return int64(e.listLen), nil
}

func (s *Store) LPop(key string) ([]byte, bool, error) {
	return s.listPop(key, true)
}

func (s *Store) RPop(key string) ([]byte, bool, error) {
	return s.listPop(key, false)
}

func (s *Store) listPop(key string, left bool) ([]byte, bool, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return nil, false, nil
	}
	if e.kind != KindList {
		return nil, false, ErrWrongType
	}

	var value []byte
	var ok bool
	if left {
		value, ok = e.leftPop()
	} else {
		value, ok = e.rightPop()
	}
	if !ok {
		return nil, false, nil
	}
	if e.listLen == 0 {
		delete(s.data[b], key)
	}
	return value, true, nil
}

// LLen returns the list length, 0 if absent, or WRONGTYPE if not a list.
func (s *Store) LLen(key string) (int64, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return 0, nil
	}
	if e.kind != KindList {
		return 0, ErrWrongType
	}
	return int64(e.listLen), nil
}

// LRange returns elements [start, stop] with Redis-style negative-index and
// clamping semantics; an empty result for a missing key.
func (s *Store) LRange(key string, start, stop int64) ([][]byte, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return [][]byte{}, nil
	}
	if e.kind != KindList {
		return nil, ErrWrongType
	}

	length := int64(e.listLen)
	start = normalizeIndex(start, length)
	stop = normalizeIndex(stop, length)

	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || length == 0 {
		return [][]byte{}, nil
	}

	values := e.listSlice()
	return values[start : stop+1], nil
}

// normalizeIndex turns a possibly-negative Redis-style index into an
// absolute one; callers still clamp to the slice bounds afterward.
func normalizeIndex(i, length int64) int64 {
	if i < 0 {
		i = length + i
	}
	return i
}

// HSet sets field on the hash at key, creating the hash if absent; returns
// true iff field was newly inserted rather than updated.
func (s *Store) HSet(key, field string, value []byte) (bool, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		e = newHashEntry()
		s.data[b][key] = e
	} else if e.kind != KindHash {
		return false, ErrWrongType
	}

	_, existed := e.hash[field]
	e.hash[field] = value
	return !existed, nil
}

func (s *Store) HGet(key, field string) ([]byte, bool, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return nil, false, nil
	}
	if e.kind != KindHash {
		return nil, false, ErrWrongType
	}
	value, ok := e.hash[field]
	return value, ok, nil
}

// HDel removes field from the hash at key, deleting the key if it was the
// last field.
func (s *Store) HDel(key, field string) (bool, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return false, nil
	}
	if e.kind != KindHash {
		return false, ErrWrongType
	}

	if _, ok := e.hash[field]; !ok {
		return false, nil
	}
	delete(e.hash, field)
	if len(e.hash) == 0 {
		delete(s.data[b], key)
	}
	return true, nil
}

func (s *Store) HExists(key, field string) (bool, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return false, nil
	}
	if e.kind != KindHash {
		return false, ErrWrongType
	}
	_, ok := e.hash[field]
	return ok, nil
}

// HashPair is one field/value pair from HGETALL.
type HashPair struct {
	Field []byte
	Value []byte
}

// HGetAll returns all field/value pairs, empty if key is absent.
func (s *Store) HGetAll(key string) ([]HashPair, error) {
	b := bucketFor(key)
	now := time.Now()
	s.mu[b].Lock()
	defer s.mu[b].Unlock()

	e := s.lookup(b, key, now)
	if e == nil {
		return nil, nil
	}
	if e.kind != KindHash {
		return nil, ErrWrongType
	}

	pairs := make([]HashPair, 0, len(e.hash))
	for f, v := range e.hash {
		pairs = append(pairs, HashPair{Field: []byte(f), Value: v})
	}
	return pairs, nil
}

// Keys returns all live keys matching a shell glob pattern (path.Match
// syntax). Supplemented per SPEC_FULL.md; not in spec.md's command table
// but not excluded by its Non-goals either.
func (s *Store) Keys(pattern string) []string {
	now := time.Now()
	var keys []string
	for b := range s.data {
		s.mu[b].Lock()
		for k, e := range s.data[b] {
			if e.isExpired(now) {
				delete(s.data[b], k)
				continue
			}
			if pattern == "" || pattern == "*" {
				keys = append(keys, k)
				continue
			}
			if ok, _ := pathMatch(pattern, k); ok {
				keys = append(keys, k)
			}
		}
		s.mu[b].Unlock()
	}
	return keys
}

// CollectExpired sweeps every bucket and evicts expired entries, reporting
// the count removed. This is an optional active sweep for memory
// reclamation; it must not change observable behavior versus lazy
// expiration alone, since lookup() already hides expired entries.
func (s *Store) CollectExpired() int {
	now := time.Now()
	count := 0
	for b := range s.data {
		s.mu[b].Lock()
		for k, e := range s.data[b] {
			if e.isExpired(now) {
				delete(s.data[b], k)
				count++
			}
		}
		s.mu[b].Unlock()
	}
	return count
}
