// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides the bounded byte buffer used to turn blocks into a
// stream and a stream into blocks.
//
// Buffer keeps unread bytes contiguous in buf[off:off+n]. A write that does
// not fit behind the unread tail first compacts the unread bytes to index 0.
// When even that is not enough the buffer degrades instead of failing hard:
//   - a single write larger than the capacity keeps only its last Cap() bytes
//     and reports ErrCapacityExceeded;
//   - otherwise the oldest unread bytes are dropped so the whole write fits,
//     and ErrOverflow is reported.
//
// Both errors match ErrBufferOverflow. The buffer stays usable afterwards.
package ring

import (
	"sync"

	"code.hybscloud.com/iox"
	"github.com/pkg/errors"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1024

// ErrBufferOverflow matches every data-loss report from a Buffer.
var ErrBufferOverflow = errors.New("ring: buffer overflow")

var (
	// ErrCapacityExceeded reports a single write larger than the buffer.
	ErrCapacityExceeded error = &overflowError{"ring: write exceeds capacity, kept tail"}

	// ErrOverflow reports unread bytes dropped to make room for a write.
	ErrOverflow error = &overflowError{"ring: overflow, dropped oldest unread bytes"}
)

type overflowError struct{ msg string }

func (e *overflowError) Error() string { return e.msg }

func (e *overflowError) Is(target error) bool { return target == ErrBufferOverflow }

// Buffer is a fixed-capacity FIFO byte buffer. All methods are safe for
// concurrent use; each call holds the buffer's lock for its duration only.
type Buffer struct {
	mu  sync.Mutex
	buf []byte
	off int
	n   int
}

// New returns an empty Buffer of the given capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Available returns the number of unread bytes.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Reset discards all unread bytes.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.off, b.n = 0, 0
	b.mu.Unlock()
}

// Write appends p. It returns the number of bytes of p now held by the buffer
// and, on data loss, ErrCapacityExceeded or ErrOverflow.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c := len(b.buf)
	if len(p) > c {
		copy(b.buf, p[len(p)-c:])
		b.off, b.n = 0, c
		return c, ErrCapacityExceeded
	}

	var err error
	if b.off+b.n+len(p) > c {
		if drop := b.n + len(p) - c; drop > 0 {
			b.off += drop
			b.n -= drop
			err = ErrOverflow
		}
		copy(b.buf, b.buf[b.off:b.off+b.n])
		b.off = 0
	}
	copy(b.buf[b.off+b.n:], p)
	b.n += len(p)
	return len(p), err
}

// Read copies up to len(p) unread bytes into p. It never blocks: with nothing
// to read it returns (0, iox.ErrWouldBlock).
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n == 0 {
		return 0, iox.ErrWouldBlock
	}
	n := copy(p, b.buf[b.off:b.off+b.n])
	b.consume(n)
	return n, nil
}

// ReadByte returns the next unread byte, or iox.ErrWouldBlock.
func (b *Buffer) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n == 0 {
		return 0, iox.ErrWouldBlock
	}
	c := b.buf[b.off]
	b.consume(1)
	return c, nil
}

// Drain returns a copy of all unread bytes and empties the buffer. It returns
// nil when there is nothing to read.
func (b *Buffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n == 0 {
		return nil
	}
	out := make([]byte, b.n)
	copy(out, b.buf[b.off:b.off+b.n])
	b.off, b.n = 0, 0
	return out
}

func (b *Buffer) consume(n int) {
	b.n -= n
	if b.n == 0 {
		b.off = 0
		return
	}
	b.off += n
}
