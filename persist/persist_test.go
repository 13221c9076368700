package persist

import (
	"os"
	"path/filepath"
	"testing"

	"knox/keyspace"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := keyspace.New()
	store.Set("greeting", []byte("hello"))
	store.RPush("queue", []byte("a"))
	store.RPush("queue", []byte("b"))
	store.HSet("profile", "name", []byte("ada"))
	store.Expire("greeting", 3600)

	dir := t.TempDir()
	path := filepath.Join(dir, "snap")

	if err := Save(store, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(path + ".db"); err != nil {
		t.Fatalf("Save should append .db: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	value, ok := loaded.Get("greeting")
	if !ok || string(value) != "hello" {
		t.Errorf("loaded greeting = %q, %v", value, ok)
	}
	if ttl := loaded.TTL("greeting"); ttl <= 0 || ttl > 3600 {
		t.Errorf("loaded TTL = %d, want in (0, 3600]", ttl)
	}

	values, _ := loaded.LRange("queue", 0, -1)
	if len(values) != 2 || string(values[0]) != "a" || string(values[1]) != "b" {
		t.Errorf("loaded queue = %v", values)
	}

	hv, ok, _ := loaded.HGet("profile", "name")
	if !ok || string(hv) != "ada" {
		t.Errorf("loaded profile.name = %q, %v", hv, ok)
	}
}

func TestLoadRejectsBadSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.db")
	os.WriteFile(path, []byte("NOTKVSTORE\n1\n0\n"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("Load with bad signature should error")
	}
}

func TestLoadDoesNotTouchLiveStoreOnFailure(t *testing.T) {
	live := keyspace.New()
	live.Set("untouched", []byte("still-here"))

	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	os.WriteFile(path, []byte("KVSTORE\n1\nnot-a-number\n"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("Load with malformed count should error")
	}

	value, ok := live.Get("untouched")
	if !ok || string(value) != "still-here" {
		t.Errorf("live store mutated despite failed Load: %q, %v", value, ok)
	}
}

func TestResolvePathAppendsDbCaseInsensitively(t *testing.T) {
	cases := map[string]string{
		"snapshot":     "snapshot.db",
		"snapshot.db":  "snapshot.db",
		"snapshot.DB":  "snapshot.DB",
		"snapshot.txt": "snapshot.txt.db",
	}
	for in, want := range cases {
		if got := ResolvePath(in); got != want {
			t.Errorf("ResolvePath(%q) = %q, want %q", in, got, want)
		}
	}
}
