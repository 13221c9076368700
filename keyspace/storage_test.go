package keyspace

import (
	"sort"
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestStoreSetGet(t *testing.T) {
	s := New()
	s.Set("key", []byte("val"))

	value, ok := s.Get("key")
	if !ok {
		t.Fatalf("Get(key) not found after Set")
	}
	if diff := deep.Equal(value, []byte("val")); diff != nil {
		t.Errorf("Get(key): %v", diff)
	}

	if _, ok := s.Get("missing"); ok {
		t.Errorf("Get(missing) should not be found")
	}
}

func TestStoreSetReplacesKindAndTTL(t *testing.T) {
	s := New()
	if _, err := s.LPush("key", []byte("a")); err != nil {
		t.Fatal(err)
	}
	s.Expire("key", 100)

	s.Set("key", []byte("val"))

	if ttl := s.TTL("key"); ttl != -1 {
		t.Errorf("TTL after SET = %d, want -1 (TTL cleared)", ttl)
	}
	if _, err := s.LLen("key"); err != ErrWrongType {
		t.Errorf("LLen after SET overwrote a list should be WRONGTYPE, got %v", err)
	}
}

func TestStoreDeleteExists(t *testing.T) {
	s := New()
	s.Set("key", []byte("val"))

	if !s.Delete("key") {
		t.Fatalf("Delete(key) = false, want true")
	}
	if s.Exists("key") {
		t.Errorf("Exists(key) after Delete = true")
	}
	if s.Delete("key") {
		t.Errorf("Delete(key) second time = true, want false")
	}
}

func TestStoreIncrDecr(t *testing.T) {
	s := New()

	n, err := s.Incr("c")
	if err != nil || n != 1 {
		t.Fatalf("Incr(c) = %d, %v, want 1, nil", n, err)
	}

	n, err = s.Incr("c")
	if err != nil || n != 2 {
		t.Fatalf("Incr(c) = %d, %v, want 2, nil", n, err)
	}

	n, err = s.Decr("c")
	if err != nil || n != 1 {
		t.Fatalf("Decr(c) = %d, %v, want 1, nil", n, err)
	}

	s.Set("c", []byte("abc"))
	if _, err := s.Incr("c"); err != ErrNotInteger {
		t.Errorf("Incr on non-integer string = %v, want ErrNotInteger", err)
	}
}

func TestStoreIncrOverflow(t *testing.T) {
	s := New()
	s.Set("c", []byte("9223372036854775807"))
	if _, err := s.Incr("c"); err != ErrNotInteger {
		t.Errorf("Incr overflow = %v, want ErrNotInteger", err)
	}
}

func TestStoreExpireTTLPersist(t *testing.T) {
	s := New()
	s.Set("key", []byte("val"))

	if s.TTL("key") != -1 {
		t.Fatalf("TTL of persistent key != -1")
	}

	ok, err := s.Expire("key", 100)
	if err != nil || !ok {
		t.Fatalf("Expire(key, 100) = %v, %v", ok, err)
	}

	ttl := s.TTL("key")
	if ttl <= 0 || ttl > 100 {
		t.Errorf("TTL after Expire = %d, want in (0, 100]", ttl)
	}

	if !s.Persist("key") {
		t.Errorf("Persist(key) = false, want true")
	}
	if s.TTL("key") != -1 {
		t.Errorf("TTL after Persist != -1")
	}
	if s.Persist("key") {
		t.Errorf("second Persist(key) = true, want false")
	}

	if _, err := s.Expire("key", -1); err != ErrInvalidExpire {
		t.Errorf("Expire with negative seconds = %v, want ErrInvalidExpire", err)
	}

	if ttl := s.TTL("nonexistent"); ttl != -2 {
		t.Errorf("TTL(nonexistent) = %d, want -2", ttl)
	}
}

func TestStoreExpiryIsLazy(t *testing.T) {
	s := New()
	s.Set("key", []byte("val"))
	s.Expire("key", 0)
	// the entry expires immediately; next read must lazily evict it.
	time.Sleep(5 * time.Millisecond)

	if _, ok := s.Get("key"); ok {
		t.Errorf("Get(key) after immediate expiry should miss")
	}
	if s.Exists("key") {
		t.Errorf("Exists(key) after immediate expiry should be false")
	}
}

func TestStoreListOps(t *testing.T) {
	s := New()

	n, _ := s.RPush("q", []byte("a"))
	if n != 1 {
		t.Fatalf("RPush = %d, want 1", n)
	}
	n, _ = s.RPush("q", []byte("b"))
	if n != 2 {
		t.Fatalf("RPush = %d, want 2", n)
	}
	n, _ = s.LPush("q", []byte("z"))
	if n != 3 {
		t.Fatalf("LPush = %d, want 3", n)
	}

	values, err := s.LRange("q", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{[]byte("z"), []byte("a"), []byte("b")}
	if diff := deep.Equal(values, want); diff != nil {
		t.Errorf("LRange: %v", diff)
	}

	for _, want := range []string{"z", "a", "b"} {
		v, ok, err := s.LPop("q")
		if err != nil || !ok || string(v) != want {
			t.Fatalf("LPop = %q, %v, %v, want %q", v, ok, err, want)
		}
	}

	if s.Exists("q") {
		t.Errorf("empty list key must not exist")
	}
}

func TestStoreListRangeNegativeAndOutOfBounds(t *testing.T) {
	s := New()
	s.RPush("q", []byte("a"))
	s.RPush("q", []byte("b"))
	s.RPush("q", []byte("c"))

	cases := []struct {
		start, stop int64
		want        []string
	}{
		{0, -1, []string{"a", "b", "c"}},
		{-1, -1, []string{"c"}},
		{-100, 100, []string{"a", "b", "c"}},
		{2, 1, []string{}},
		{5, 10, []string{}},
	}

	for _, c := range cases {
		values, err := s.LRange("q", c.start, c.stop)
		if err != nil {
			t.Fatal(err)
		}
		got := make([]string, len(values))
		for i, v := range values {
			got[i] = string(v)
		}
		if diff := deep.Equal(got, c.want); diff != nil {
			t.Errorf("LRange(%d,%d): %v", c.start, c.stop, diff)
		}
	}
}

func TestStoreListWrongType(t *testing.T) {
	s := New()
	s.Set("key", []byte("val"))

	if _, err := s.LPush("key", []byte("x")); err != ErrWrongType {
		t.Errorf("LPush on string key = %v, want ErrWrongType", err)
	}
	if _, err := s.LLen("key"); err != ErrWrongType {
		t.Errorf("LLen on string key = %v, want ErrWrongType", err)
	}
}

func TestStoreHashOps(t *testing.T) {
	s := New()

	inserted, err := s.HSet("h", "f1", []byte("v1"))
	if err != nil || !inserted {
		t.Fatalf("HSet new field = %v, %v, want true, nil", inserted, err)
	}

	inserted, err = s.HSet("h", "f1", []byte("v2"))
	if err != nil || inserted {
		t.Fatalf("HSet update field = %v, %v, want false, nil", inserted, err)
	}

	value, ok, err := s.HGet("h", "f1")
	if err != nil || !ok || string(value) != "v2" {
		t.Fatalf("HGet = %q, %v, %v, want v2, true, nil", value, ok, err)
	}

	pairs, err := s.HGetAll("h")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || string(pairs[0].Field) != "f1" || string(pairs[0].Value) != "v2" {
		t.Errorf("HGetAll = %+v", pairs)
	}

	deleted, err := s.HDel("h", "f1")
	if err != nil || !deleted {
		t.Fatalf("HDel = %v, %v", deleted, err)
	}
	if s.Exists("h") {
		t.Errorf("hash key with no fields left must not exist")
	}
}

func TestStoreHGetAllMissingKey(t *testing.T) {
	s := New()
	pairs, err := s.HGetAll("missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 0 {
		t.Errorf("HGetAll(missing) = %+v, want empty", pairs)
	}
}

func TestStoreKeysGlob(t *testing.T) {
	s := New()
	s.Set("user:1", []byte("a"))
	s.Set("user:2", []byte("b"))
	s.Set("session:1", []byte("c"))

	keys := s.Keys("user:*")
	sort.Strings(keys)
	if diff := deep.Equal(keys, []string{"user:1", "user:2"}); diff != nil {
		t.Errorf("Keys(user:*): %v", diff)
	}

	all := s.Keys("*")
	if len(all) != 3 {
		t.Errorf("Keys(*) = %v, want 3 entries", all)
	}
}

func TestStoreCollectExpired(t *testing.T) {
	s := New()
	s.Set("a", []byte("1"))
	s.Expire("a", 0)
	s.Set("b", []byte("2"))
	time.Sleep(5 * time.Millisecond)

	n := s.CollectExpired()
	if n != 1 {
		t.Errorf("CollectExpired() = %d, want 1", n)
	}
	if !s.Exists("b") {
		t.Errorf("CollectExpired must not touch live keys")
	}
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	s := New()
	s.Set("str", []byte("hello"))
	s.RPush("list", []byte("x"))
	s.RPush("list", []byte("y"))
	s.HSet("hash", "f", []byte("v"))

	raw := s.Snapshot()
	if len(raw) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(raw))
	}

	s2 := New()
	for _, e := range raw {
		switch e.Kind {
		case KindString:
			s2.RestoreString(e.Key, e.Str, e.ExpiresAt)
		case KindList:
			s2.RestoreList(e.Key, e.List, e.ExpiresAt)
		case KindHash:
			s2.RestoreHash(e.Key, e.Hash, e.ExpiresAt)
		}
	}

	v, ok := s2.Get("str")
	if !ok || string(v) != "hello" {
		t.Errorf("restored str = %q, %v", v, ok)
	}
	values, _ := s2.LRange("list", 0, -1)
	if len(values) != 2 || string(values[0]) != "x" || string(values[1]) != "y" {
		t.Errorf("restored list = %v", values)
	}
	hv, ok, _ := s2.HGet("hash", "f")
	if !ok || string(hv) != "v" {
		t.Errorf("restored hash field = %q, %v", hv, ok)
	}
}
