// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cobs

import (
	"io"
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/iox"
)

// Flusher is implemented by sinks that buffer written bytes until told otherwise.
type Flusher interface {
	Flush() error
}

// Writer stuffs messages and writes one frame per Write to the underlying sink.
//
// Write is safe for concurrent use; frames from concurrent callers never interleave.
type Writer struct {
	mu         sync.Mutex
	wr         io.Writer
	frame      []byte
	maxLen     int
	retryDelay time.Duration
}

// NewWriter returns a Writer that emits frames to w.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	o := buildOptions(opts)
	return &Writer{
		wr:         w,
		frame:      make([]byte, MaxFrameSize(o.MaxMessageLen)),
		maxLen:     o.MaxMessageLen,
		retryDelay: o.RetryDelay,
	}
}

// Write stuffs msg and writes the resulting frame, then flushes the sink if it
// implements Flusher. It returns len(msg) on success.
//
// A message rejected by the codec produces no output at all.
func (w *Writer) Write(msg []byte) (int, error) {
	if w.wr == nil {
		return 0, ErrInvalidArgument
	}
	if len(msg) > w.maxLen {
		return 0, ErrSourceTooLong
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := Stuff(w.frame, msg)
	if err != nil {
		return 0, err
	}
	if err := w.writeFull(w.frame[:n]); err != nil {
		return 0, err
	}
	if f, ok := w.wr.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return 0, err
		}
	}
	return len(msg), nil
}

func (w *Writer) writeFull(p []byte) error {
	for len(p) > 0 {
		n, err := w.wr.Write(p)
		// Guard against broken Writers that violate the io.Writer contract by
		// returning (0, nil) on a non-empty buffer.
		if n == 0 && err == nil {
			return io.ErrShortWrite
		}
		p = p[n:]
		if err == nil {
			continue
		}
		if err != iox.ErrWouldBlock || !w.waitOnce() {
			return err
		}
	}
	return nil
}

func (w *Writer) waitOnce() bool {
	if w.retryDelay < 0 {
		return false
	}
	if w.retryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(w.retryDelay)
	return true
}
