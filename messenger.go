// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"context"
	"sync"

	"code.hybscloud.com/comm/cobs"
)

// NewMessenger returns the Messenger for c's shape and the configured Framing.
//
//   - StreamComm + COBS (or auto): COBS framing over the stream.
//   - StreamComm + transparent: each chunk read from the stream is one message.
//   - BlockComm + transparent (or auto): one block is one message.
//   - BlockComm + COBS: COBS frames over a StreamOverBlock view of c.
//
// It fails with ErrInvalidArgument when c is neither a StreamComm nor a BlockComm.
func NewMessenger(c Comm, opts ...Option) (Messenger, error) {
	o := buildOptions(opts)
	switch t := c.(type) {
	case StreamComm:
		if o.Framing == FramingTransparent {
			return NewTransparentStreamMessenger(t, opts...), nil
		}
		return NewCOBSMessenger(t, opts...), nil
	case BlockComm:
		if o.Framing == FramingCOBS {
			return NewCOBSMessenger(NewStreamOverBlock(t, opts...), opts...), nil
		}
		return NewTransparentBlockMessenger(t, opts...), nil
	default:
		return nil, ErrInvalidArgument
	}
}

// TransparentBlockMessenger maps messages 1:1 onto the blocks of a BlockComm.
type TransparentBlockMessenger struct {
	b    BlockComm
	opts Options

	mu      sync.Mutex
	handler MessageHandler
}

// NewTransparentBlockMessenger wraps b and installs itself as b's block handler.
func NewTransparentBlockMessenger(b BlockComm, opts ...Option) *TransparentBlockMessenger {
	m := &TransparentBlockMessenger{b: b, opts: buildOptions(opts)}
	if b != nil {
		b.SetBlockHandler(m.receive)
	}
	return m
}

// NewTransparentStreamMessenger returns a TransparentBlockMessenger over a
// BlockOverStream view of s. Messages are whatever chunks the stream reads
// return; there is no framing.
func NewTransparentStreamMessenger(s StreamComm, opts ...Option) *TransparentBlockMessenger {
	return NewTransparentBlockMessenger(NewBlockOverStream(s, opts...), opts...)
}

func (m *TransparentBlockMessenger) Connect() error {
	if m.b == nil {
		return ErrInvalidArgument
	}
	return m.b.Connect()
}

func (m *TransparentBlockMessenger) Disconnect() error {
	if m.b == nil {
		return ErrInvalidArgument
	}
	return m.b.Disconnect()
}

func (m *TransparentBlockMessenger) Connected() bool {
	return m.b != nil && m.b.Connected()
}

// SendMessage sends msg as one block.
func (m *TransparentBlockMessenger) SendMessage(msg []byte) error {
	if !m.Connected() {
		return ErrDisconnected
	}
	return m.b.WriteBlock(msg)
}

func (m *TransparentBlockMessenger) SetMessageHandler(h MessageHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

func (m *TransparentBlockMessenger) receive(block []byte) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		m.opts.Logger.Debug("comm: message dropped, no handler", "len", len(block))
		return
	}
	h(block)
}

// MessageWriter encodes one message per Write onto a byte stream.
type MessageWriter interface {
	Write(msg []byte) (int, error)
}

// MessageReader polls a byte stream once per ReadOnce and delivers every
// message completed by the bytes read to its handler.
type MessageReader interface {
	ReadOnce() (int, error)
	SetMessageHandler(h MessageHandler)
}

// StreamMessenger carries messages over a StreamComm through an encoder and
// a decoder bound to that stream.
//
// While connected, one poll goroutine calls the decoder's ReadOnce; the
// decoder invokes the message handler on that goroutine.
type StreamMessenger struct {
	s    StreamComm
	w    MessageWriter
	r    MessageReader
	opts Options
	poll poller
}

// NewStreamMessenger binds w and r, which must write to and read from s.
func NewStreamMessenger(s StreamComm, w MessageWriter, r MessageReader, opts ...Option) *StreamMessenger {
	return &StreamMessenger{s: s, w: w, r: r, opts: buildOptions(opts)}
}

// NewCOBSMessenger returns a StreamMessenger that frames messages with COBS.
// Corrupt inbound frames are dropped and reported to the error handler.
func NewCOBSMessenger(s StreamComm, opts ...Option) *StreamMessenger {
	o := buildOptions(opts)
	co := o.cobsOptions()
	w := cobs.NewWriter(s, co...)
	r := cobs.NewReader(s, append(co, cobs.WithErrorHandler(o.report))...)
	return &StreamMessenger{s: s, w: w, r: r, opts: o}
}

// Connect connects the stream and starts the read poll.
func (m *StreamMessenger) Connect() error {
	if m.s == nil || m.w == nil || m.r == nil {
		return ErrInvalidArgument
	}
	if err := m.s.Connect(); err != nil {
		return err
	}
	m.poll.start(&m.opts, "stream-messenger", func(ctx context.Context) error {
		return pollLoop(ctx, m.opts.PollInterval, m.r.ReadOnce)
	})
	return nil
}

// Disconnect stops the read poll, waits for it to exit, then disconnects the
// stream. No message handler runs after Disconnect returns, except that a
// handler calling Disconnect itself lets the current poll step finish.
func (m *StreamMessenger) Disconnect() error {
	if m.s == nil {
		return ErrInvalidArgument
	}
	m.poll.stop()
	return m.s.Disconnect()
}

func (m *StreamMessenger) Connected() bool {
	return m.s != nil && m.s.Connected()
}

// SendMessage encodes msg onto the stream. Codec rejections match ErrCodec
// and produce no output.
func (m *StreamMessenger) SendMessage(msg []byte) error {
	if !m.Connected() {
		return ErrDisconnected
	}
	_, err := m.w.Write(msg)
	return err
}

func (m *StreamMessenger) SetMessageHandler(h MessageHandler) {
	if m.r != nil {
		m.r.SetMessageHandler(h)
	}
}
