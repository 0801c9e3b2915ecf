// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cobs_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/comm/cobs"
)

// --- Benchmark fakes (allocation-free) ---

// sliceWriter writes into a preallocated byte slice without allocating.
type sliceWriter struct {
	buf []byte
	off int
}

func (w *sliceWriter) Reset() { w.off = 0 }

func (w *sliceWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// Always accept the full write; benchmarks pre-size the sink.
	n := copy(w.buf[w.off:], p)
	w.off += n
	return n, nil
}

// replayReader replays a fixed wire buffer in a loop, at most chunk bytes per
// call.
type replayReader struct {
	b     []byte
	off   int
	chunk int
}

func (r *replayReader) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		r.off = 0 // loop
	}
	c := min(len(p), r.chunk, len(r.b)-r.off)
	n := copy(p, r.b[r.off:r.off+c])
	r.off += n
	return n, nil
}

func TestAllocs_StuffUnstuff(t *testing.T) {
	msg := bytes.Repeat([]byte{0x11, 0x00, 0x22}, 60)
	frame := make([]byte, cobs.MaxFrameLen)
	out := make([]byte, cobs.MaxMessageLen)
	allocs := testing.AllocsPerRun(1000, func() {
		n, _ := cobs.Stuff(frame, msg)
		_, _ = cobs.Unstuff(out, frame[:n])
	})
	if allocs != 0 {
		t.Fatalf("allocs/op = %v want 0", allocs)
	}
}

func TestAllocs_WriterWrite(t *testing.T) {
	sink := &sliceWriter{buf: make([]byte, cobs.MaxFrameLen)}
	w := cobs.NewWriter(sink)
	msg := []byte("steady state")
	allocs := testing.AllocsPerRun(1000, func() {
		sink.Reset()
		_, _ = w.Write(msg)
	})
	if allocs != 0 {
		t.Fatalf("allocs/op = %v want 0", allocs)
	}
}

func BenchmarkWriter_Write(b *testing.B) {
	sink := &sliceWriter{buf: make([]byte, cobs.MaxFrameLen)}
	w := cobs.NewWriter(sink)
	msg := bytes.Repeat([]byte{0xA5, 0x00}, 64)
	b.SetBytes(int64(len(msg)))
	b.ReportAllocs()
	for b.Loop() {
		sink.Reset()
		if _, err := w.Write(msg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReader_ReadOnce(b *testing.B) {
	frame, err := cobs.Encode(bytes.Repeat([]byte{0x5A, 0x00}, 64))
	if err != nil {
		b.Fatal(err)
	}
	wire := bytes.Repeat(frame, 8)
	r := cobs.NewReader(&replayReader{b: wire, chunk: 64})
	r.SetMessageHandler(func([]byte) {})
	b.SetBytes(64)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := r.ReadOnce(); err != nil {
			b.Fatal(err)
		}
	}
}
