// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cobs

import (
	"io"
	"sync"
)

// Reader turns a byte stream into decoded messages.
//
// Bytes arrive either by polling the source with ReadOnce or by pushing them
// with Write. Each byte is appended to the in-progress frame; a frame that
// outgrows the configured maximum is marked invalid and everything up to the
// next delimiter is discarded. On a delimiter a valid frame is unstuffed: the
// message goes to the message handler, a decode failure to the error handler.
// Accumulation then restarts clean, so one bad frame never desynchronizes the
// frames after it.
//
// Handlers run on the caller's goroutine after every Reader lock is released,
// in stream order for a single polling goroutine. Handlers may call back into
// the Reader, including ReadOnce and Write.
type Reader struct {
	rmu sync.Mutex // serializes ReadOnce; guards raw
	rd  io.Reader
	raw []byte

	mu        sync.Mutex
	stuffed   []byte
	n         int
	unstuffed []byte
	valid     bool
	onMessage MessageHandler
	onError   ErrorHandler
	logger    Logger

	events []event
}

type event struct {
	msg []byte
	err error
}

// NewReader returns a Reader that polls r. r may be nil when bytes are only
// pushed with Write.
func NewReader(r io.Reader, opts ...Option) *Reader {
	o := buildOptions(opts)
	return &Reader{
		rd:        r,
		raw:       make([]byte, o.ReaderBufferSize),
		stuffed:   make([]byte, MaxFrameSize(o.MaxMessageLen)),
		unstuffed: make([]byte, o.MaxMessageLen),
		valid:     true,
		onMessage: o.OnMessage,
		onError:   o.OnError,
		logger:    o.Logger,
	}
}

// SetMessageHandler replaces the decoded-message callback.
func (r *Reader) SetMessageHandler(h MessageHandler) {
	r.mu.Lock()
	r.onMessage = h
	r.mu.Unlock()
}

// SetErrorHandler replaces the rejected-frame callback.
func (r *Reader) SetErrorHandler(h ErrorHandler) {
	r.mu.Lock()
	r.onError = h
	r.mu.Unlock()
}

// ReadOnce performs one Read on the source and processes whatever it returned.
// It returns the number of stream bytes consumed and the source's error, which
// includes iox.ErrWouldBlock when no input was available.
func (r *Reader) ReadOnce() (int, error) {
	if r.rd == nil {
		return 0, ErrInvalidArgument
	}
	r.rmu.Lock()
	n, err := r.rd.Read(r.raw)
	if n == 0 && err == nil {
		r.rmu.Unlock()
		return 0, io.ErrNoProgress
	}
	var d dispatch
	if n > 0 {
		d = r.collect(r.raw[:n])
	}
	r.rmu.Unlock()

	d.run(r.logger)
	return n, err
}

// Write pushes stream bytes into the Reader. It always consumes all of p.
func (r *Reader) Write(p []byte) (int, error) {
	d := r.collect(p)
	d.run(r.logger)
	return len(p), nil
}

// Reset drops the in-progress frame.
func (r *Reader) Reset() {
	r.mu.Lock()
	r.n = 0
	r.valid = true
	r.mu.Unlock()
}

// dispatch is the outcome of one collect: the decoded events and the handlers
// current at that time.
type dispatch struct {
	events    []event
	onMessage MessageHandler
	onError   ErrorHandler
}

// collect runs p through the frame state machine and returns the events it
// completed. The caller runs them once no Reader lock is held.
func (r *Reader) collect(p []byte) dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range p {
		if r.n < len(r.stuffed) {
			r.stuffed[r.n] = b
			r.n++
		} else if r.valid {
			r.logger.Warn("cobs: frame exceeds maximum length, discarding until delimiter",
				"max_frame_len", len(r.stuffed))
			r.valid = false
		}
		if b != Delimiter {
			continue
		}
		if r.valid {
			r.events = append(r.events, r.decode())
		}
		r.n = 0
		r.valid = true
	}
	d := dispatch{events: r.events, onMessage: r.onMessage, onError: r.onError}
	r.events = r.events[:0:0]
	return d
}

func (d dispatch) run(logger Logger) {
	for _, ev := range d.events {
		if ev.err != nil {
			if d.onError != nil {
				d.onError(ev.err)
			}
			continue
		}
		if d.onMessage != nil {
			d.onMessage(ev.msg)
		} else {
			logger.Debug("cobs: message dropped, no handler", "len", len(ev.msg))
		}
	}
}

func (r *Reader) decode() event {
	m, err := Unstuff(r.unstuffed, r.stuffed[:r.n])
	if err != nil {
		r.logger.Warn("cobs: dropping frame", "len", r.n, "error", err)
		return event{err: corrupt(err)}
	}
	msg := make([]byte, m)
	copy(msg, r.unstuffed[:m])
	return event{msg: msg}
}
