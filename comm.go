// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package comm provides a message transport layer that works the same over
// byte-stream transports (serial ports, TCP, piped streams) and block
// transports (UDP, in-process pipes).
//
// Semantics and design:
//   - Transport shape: a StreamComm exposes an unbounded byte sequence through
//     io.Reader and io.Writer; a BlockComm sends one block atomically and
//     delivers each received block to a handler. Both share the Comm
//     connect/disconnect lifecycle.
//   - Adaptation: BlockOverStream turns a stream into a block view by slicing
//     whatever bytes are available into chunks; StreamOverBlock turns a block
//     transport into a stream through two ring buffers. Neither adapter
//     preserves message boundaries on its own.
//   - Messaging: a Messenger sends and receives whole messages. Over a stream
//     the messages are COBS framed (package cobs); over a block transport one
//     block is one message. NewMessenger picks the variant from the transport
//     shape and the configured Framing.
//   - Non-blocking first: stream reads return within a bounded time, and
//     "no data yet" is iox.ErrWouldBlock (re-exposed as comm.ErrWouldBlock).
//     Poll tasks treat it as idle and wait one PollInterval.
//
// Handlers run on the transport's single poll goroutine, so at most one
// handler call is in flight per transport. No lock is held while a handler
// runs. Disconnect stops the poll goroutine and waits for it to exit. A
// handler may call Disconnect on its own transport: the call cancels the poll
// without waiting, and the goroutine exits once the handler returns.
package comm

import (
	"io"

	"code.hybscloud.com/comm/cobs"
	"code.hybscloud.com/iox"
)

// Comm is the lifecycle shared by every transport.
//
// Connect and Disconnect are idempotent. Connect may fail when the underlying
// resource cannot be opened; Disconnect releases it.
type Comm interface {
	Connect() error
	Disconnect() error
	Connected() bool
}

// StreamComm is a byte-stream transport.
//
// Read must return within a bounded time. With no input available it returns
// (0, ErrWouldBlock). Implementations that buffer writes also implement
// Flush() error; writers of this package call it after every unit written.
type StreamComm interface {
	Comm
	io.Reader
	io.Writer
}

// BlockHandler receives one block. The slice is owned by the handler.
type BlockHandler func(block []byte)

// BlockComm is a transport that preserves block boundaries.
type BlockComm interface {
	Comm
	// WriteBlock sends block as one unit.
	WriteBlock(block []byte) error
	// SetBlockHandler replaces the receive handler. A nil handler drops blocks.
	SetBlockHandler(h BlockHandler)
}

// MessageHandler receives one message. The slice is owned by the handler.
type MessageHandler = cobs.MessageHandler

// ErrorHandler receives errors that have no caller to return to, such as a
// corrupt inbound frame or a failed poll.
type ErrorHandler func(err error)

// Messenger exchanges whole messages over a transport.
type Messenger interface {
	Comm
	// SendMessage sends msg as one message. It fails with ErrDisconnected
	// while the messenger is not connected.
	SendMessage(msg []byte) error
	// SetMessageHandler replaces the previous handler; handlers do not stack.
	SetMessageHandler(h MessageHandler)
}

// Flusher is implemented by streams that hold written bytes until flushed.
type Flusher = cobs.Flusher

// ChanHandler returns a MessageHandler that sends every message on ch.
//
// The send blocks the transport's poll goroutine until the message is taken,
// so exactly one message is in flight between the transport and the
// application. The application must keep receiving until Disconnect returns.
func ChanHandler(ch chan<- []byte) MessageHandler {
	return func(msg []byte) { ch <- msg }
}

// These are provided as package-level aliases so callers can reference the
// semantic control-flow errors without importing iox directly.
var (
	// ErrWouldBlock means "no further progress without waiting".
	//
	// Stream reads return it when no byte is available yet. It is an expected
	// control-flow signal, not a failure.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means "this completion is usable and more completions will follow".
	//
	// Poll tasks treat it like a successful read and poll again immediately.
	ErrMore = iox.ErrMore
)
