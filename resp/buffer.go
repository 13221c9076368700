// Package resp implements the RESP2 wire codec: the inbound frame detector,
// the outbound reply encoders, and the per-connection growable buffer they
// run on top of.
package resp

import (
	"bytes"
	"errors"
)

// DefaultMaxBufferSize is the hard ceiling on a connection's inbound
// buffer. Exceeding it is an oversize protocol error that closes the
// connection.
const DefaultMaxBufferSize = 1 << 20

// DefaultMaxCommandSize caps a single parsed command independently of the
// buffer ceiling.
const DefaultMaxCommandSize = 512 << 10

// ErrOversizeBuffer is returned by Append when growing the buffer would
// exceed MaxSize.
var ErrOversizeBuffer = errors.New("ERR Command too large")

// Buffer is a growable byte buffer with append and consume-prefix
// semantics, letting a caller inspect partial data before a full frame
// is available.
type Buffer struct {
	data    []byte
	MaxSize int
}

// NewBuffer constructs an empty Buffer bounded by maxSize bytes.
func NewBuffer(maxSize int) *Buffer {
	return &Buffer{MaxSize: maxSize}
}

// Append adds bytes read off the socket to the buffer. It reports
// ErrOversizeBuffer without mutating state if the result would exceed
// MaxSize.
func (b *Buffer) Append(p []byte) error {
	if len(b.data)+len(p) > b.MaxSize {
		return ErrOversizeBuffer
	}
	b.data = append(b.data, p...)
	return nil
}

// Bytes returns the buffer's current contents. The slice is only valid
// until the next Consume or Append call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len reports the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Consume discards the first n bytes, shifting the remainder to the front.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}

// IndexCRLF returns the index of the next "\r\n" in the buffer starting at
// offset, or -1 if not yet present.
func (b *Buffer) IndexCRLF(offset int) int {
	if offset >= len(b.data) {
		return -1
	}
	i := bytes.Index(b.data[offset:], crlf)
	if i < 0 {
		return -1
	}
	return offset + i
}

var crlf = []byte("\r\n")
