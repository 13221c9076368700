// Package persist implements the snapshot codec: a text-framed,
// length-prefixed format for SAVE/LOAD, favoring a plain, inspectable
// wire format over a binary encoding.
package persist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"knox/keyspace"
)

const (
	signature   = "KVSTORE"
	fileVersion = 1
)

// kindCode is the on-disk type tag, independent of keyspace.Kind's own
// iota values so the file format never shifts if Kind gains a member.
type kindCode int

const (
	codeString kindCode = 0
	codeList   kindCode = 1
	codeHash   kindCode = 2
)

func kindToCode(k keyspace.Kind) kindCode {
	switch k {
	case keyspace.KindList:
		return codeList
	case keyspace.KindHash:
		return codeHash
	default:
		return codeString
	}
}

// ResolvePath appends ".db" to path if it doesn't already end in ".db",
// case-insensitively, per §4.6.
func ResolvePath(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".db") {
		return path
	}
	return path + ".db"
}

// Save writes every live entry in store to path, creating or truncating
// the file. No fsync is performed.
func Save(store *keyspace.Store, path string) error {
	path = ResolvePath(path)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	entries := store.Snapshot()

	writeLine(w, signature)
	writeLine(w, strconv.Itoa(fileVersion))
	writeLine(w, strconv.Itoa(len(entries)))

	for _, e := range entries {
		writeLengthPrefixed(w, []byte(e.Key))
		writeLine(w, strconv.Itoa(int(kindToCode(e.Kind))))
		writeLine(w, strconv.FormatInt(expirySeconds(e.ExpiresAt), 10))

		switch e.Kind {
		case keyspace.KindString:
			writeLengthPrefixed(w, e.Str)
		case keyspace.KindList:
			writeLine(w, strconv.Itoa(len(e.List)))
			for _, v := range e.List {
				writeLengthPrefixed(w, v)
			}
		case keyspace.KindHash:
			writeLine(w, strconv.Itoa(len(e.Hash)))
			for _, p := range e.Hash {
				writeLengthPrefixed(w, p.Field)
				writeLengthPrefixed(w, p.Value)
			}
		}
	}

	return w.Flush()
}

// expirySeconds encodes an absolute expiry as epoch seconds, 0 meaning
// "no expiry" per §4.6's layout comment.
func expirySeconds(at time.Time) int64 {
	if at.IsZero() {
		return 0
	}
	return at.Unix()
}

// Load reads path, validates its signature and version, and reconstructs a
// fresh keyspace.Store. It never touches an existing live store directly;
// the caller swaps it in via Store.ReplaceFrom once Load succeeds, so a
// malformed file can't leave a half-loaded keyspace (§9 open question,
// resolved toward the atomic-swap variant: unlike the observable
// clear-then-parse behavior the original exhibits, this implementation
// fails closed with the prior keyspace untouched).
func Load(path string) (*keyspace.Store, error) {
	path = ResolvePath(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := &reader{br: bufio.NewReader(f)}

	sig, err := r.line()
	if err != nil {
		return nil, err
	}
	if sig != signature {
		return nil, fmt.Errorf("bad signature %q", sig)
	}

	version, err := r.int()
	if err != nil {
		return nil, err
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported file version %d", version)
	}

	count, err := r.int()
	if err != nil {
		return nil, err
	}

	staging := keyspace.New()
	for i := 0; i < count; i++ {
		if err := loadEntry(r, staging); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	return staging, nil
}

func loadEntry(r *reader, staging *keyspace.Store) error {
	key, err := r.lengthPrefixed()
	if err != nil {
		return err
	}
	code, err := r.int()
	if err != nil {
		return err
	}
	expiresUnix, err := r.int64()
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if expiresUnix != 0 {
		expiresAt = time.Unix(expiresUnix, 0)
	}

	switch kindCode(code) {
	case codeString:
		value, err := r.lengthPrefixed()
		if err != nil {
			return err
		}
		staging.RestoreString(string(key), value, expiresAt)
	case codeList:
		n, err := r.int()
		if err != nil {
			return err
		}
		values := make([][]byte, n)
		for i := 0; i < n; i++ {
			values[i], err = r.lengthPrefixed()
			if err != nil {
				return err
			}
		}
		staging.RestoreList(string(key), values, expiresAt)
	case codeHash:
		n, err := r.int()
		if err != nil {
			return err
		}
		pairs := make([]keyspace.HashPair, n)
		for i := 0; i < n; i++ {
			field, err := r.lengthPrefixed()
			if err != nil {
				return err
			}
			value, err := r.lengthPrefixed()
			if err != nil {
				return err
			}
			pairs[i] = keyspace.HashPair{Field: field, Value: value}
		}
		staging.RestoreHash(string(key), pairs, expiresAt)
	default:
		return fmt.Errorf("unknown type code %d", code)
	}
	return nil
}

func writeLine(w *bufio.Writer, s string) {
	w.WriteString(s)
	w.WriteByte('\n')
}

func writeLengthPrefixed(w *bufio.Writer, b []byte) {
	writeLine(w, strconv.Itoa(len(b)))
	w.Write(b)
	w.WriteByte('\n')
}

// reader is a minimal line/length-prefixed-token scanner over the snapshot
// format; kept separate from bufio.Scanner since tokens are mixed
// newline-terminated integers and raw length-prefixed byte strings.
type reader struct {
	br *bufio.Reader
}

func (r *reader) line() (string, error) {
	s, err := r.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSuffix(s, "\n"), nil
}

func (r *reader) int() (int, error) {
	s, err := r.line()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func (r *reader) int64() (int64, error) {
	s, err := r.line()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func (r *reader) lengthPrefixed() ([]byte, error) {
	n, err := r.int()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	trailer := make([]byte, 1)
	if _, err := io.ReadFull(r.br, trailer); err != nil {
		return nil, err
	}
	if !bytes.Equal(trailer, []byte("\n")) {
		return nil, fmt.Errorf("missing trailing newline after %d-byte field", n)
	}
	return buf, nil
}
