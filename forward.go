// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Forwarder relays messages received on a source Messenger to a destination
// Messenger while preserving message boundaries.
//
// Semantics:
//   - The Forwarder installs itself as src's message handler; each message
//     src delivers is sent on dst as exactly one message.
//   - Messages run on src's poll goroutine, so they are forwarded in the
//     order src received them.
//   - A failed send is counted, logged and reported to the error handler;
//     forwarding continues with the next message.
//   - Stop detaches the Forwarder from src. Neither messenger is connected
//     or disconnected by the Forwarder.
type Forwarder struct {
	dst, src Messenger
	opts     Options

	stopped  atomic.Bool
	messages atomic.Uint64
	bytes    atomic.Uint64
	failures atomic.Uint64
}

// ForwardStats is a snapshot of a Forwarder's counters.
type ForwardStats struct {
	Messages uint64 // messages sent on dst
	Bytes    uint64 // payload bytes sent on dst
	Failures uint64 // sends that failed
}

// NewForwarder constructs a Forwarder that relays messages from src to dst.
func NewForwarder(dst, src Messenger, opts ...Option) (*Forwarder, error) {
	if dst == nil || src == nil {
		return nil, ErrInvalidArgument
	}
	f := &Forwarder{dst: dst, src: src, opts: buildOptions(opts)}
	src.SetMessageHandler(f.forward)
	return f, nil
}

func (f *Forwarder) forward(msg []byte) {
	if f.stopped.Load() {
		return
	}
	if err := f.dst.SendMessage(msg); err != nil {
		f.failures.Add(1)
		f.opts.Logger.Warn("comm: forward failed", "len", len(msg), "error", err)
		f.opts.report(errors.Wrap(err, "comm: forward"))
		return
	}
	f.messages.Add(1)
	f.bytes.Add(uint64(len(msg)))
}

// Stop detaches the Forwarder from its source. It is safe to call more than once.
func (f *Forwarder) Stop() {
	if f.stopped.Swap(true) {
		return
	}
	f.src.SetMessageHandler(nil)
}

func (f *Forwarder) Stats() ForwardStats {
	return ForwardStats{
		Messages: f.messages.Load(),
		Bytes:    f.bytes.Load(),
		Failures: f.failures.Load(),
	}
}
