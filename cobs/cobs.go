// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cobs implements Consistent Overhead Byte Stuffing framing.
//
// Semantics and design:
//   - Stuff/Unstuff are pure functions over caller-provided buffers. Nothing is
//     allocated; no I/O is performed.
//   - Writer stuffs one message per Write and emits the frame to an io.Writer.
//   - Reader consumes a byte stream, splits it on the delimiter and hands each
//     decoded message to a handler. A malformed frame is dropped and reported;
//     the next delimiter always restarts clean accumulation.
//
// Wire format: [len_1][data...][len_2][data...]...[0x00]. Each len_k is the
// 1-based distance to the next zero-valued position (another length byte or the
// terminating delimiter). Zero bytes of the message are implicit between runs.
// Messages are 1..254 bytes; a frame is always len(message)+2 bytes.
package cobs

import "bytes"

const (
	// Delimiter terminates every frame and never appears inside one.
	Delimiter byte = 0x00

	// MaxMessageLen is the largest message Stuff accepts.
	MaxMessageLen = 254

	// MaxFrameLen is the largest frame Unstuff accepts.
	MaxFrameLen = MaxMessageLen + frameOverhead

	frameOverhead = 2
	minFrameLen   = 1 + frameOverhead
)

// MaxFrameSize returns the frame length produced for an n-byte message.
func MaxFrameSize(n int) int { return n + frameOverhead }

// Stuff encodes src into dst and returns the frame length.
//
// Errors: ErrEmptySource, ErrSourceTooLong, ErrDestinationTooSmall. dst is not
// touched when an error is returned.
func Stuff(dst, src []byte) (int, error) {
	n := len(src)
	switch {
	case n == 0:
		return 0, ErrEmptySource
	case n > MaxMessageLen:
		return 0, ErrSourceTooLong
	case len(dst) < n+frameOverhead:
		return 0, ErrDestinationTooSmall
	}

	// code is the index of the pending length byte; it is backpatched once the
	// distance to the next zero position is known.
	code := 0
	for i, b := range src {
		pos := i + 1
		if b == 0 {
			dst[code] = byte(pos - code)
			code = pos
			continue
		}
		dst[pos] = b
	}
	end := n + 1
	dst[code] = byte(end - code)
	dst[end] = Delimiter
	return n + frameOverhead, nil
}

// Unstuff decodes a complete frame (including its trailing delimiter) into dst
// and returns the message length.
//
// Errors: ErrFrameTooShort, ErrFrameTooLong, ErrDestinationTooSmall,
// ErrCorruptFrame. On ErrCorruptFrame dst may hold partial output that the
// caller must discard.
func Unstuff(dst, frame []byte) (int, error) {
	n := len(frame)
	switch {
	case n < minFrameLen:
		return 0, ErrFrameTooShort
	case n > MaxFrameLen:
		return 0, ErrFrameTooLong
	case len(dst) < n-frameOverhead:
		return 0, ErrDestinationTooSmall
	}
	last := n - 1
	if frame[last] != Delimiter || bytes.IndexByte(frame[:last], Delimiter) >= 0 {
		return 0, ErrCorruptFrame
	}

	out := 0
	pos := 0
	for pos < last {
		end := pos + int(frame[pos])
		if end > last {
			return out, ErrCorruptFrame
		}
		out += copy(dst[out:], frame[pos+1:end])
		pos = end
		if pos < last {
			dst[out] = 0
			out++
		}
	}
	return out, nil
}

// Encode returns the frame for src in a newly allocated slice.
func Encode(src []byte) ([]byte, error) {
	dst := make([]byte, MaxFrameSize(len(src)))
	n, err := Stuff(dst, src)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// Decode returns the message carried by frame in a newly allocated slice.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < minFrameLen {
		return nil, ErrFrameTooShort
	}
	dst := make([]byte, len(frame)-frameOverhead)
	n, err := Unstuff(dst, frame)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}
