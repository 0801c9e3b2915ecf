// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"context"
	"sync"

	"code.hybscloud.com/comm/internal/ring"
	"github.com/pkg/errors"
)

// BlockOverStream exposes a StreamComm as a BlockComm.
//
// While connected, one poll goroutine reads up to ChunkSize bytes at a time
// from the stream and hands each non-empty read to the block handler as one
// block. Block boundaries are whatever the reads happened to return: a
// message written on the far side may arrive split across blocks or merged
// with its neighbors. Layer a codec on top when boundaries matter.
//
// WriteBlock writes the block's bytes onto the stream and flushes it.
type BlockOverStream struct {
	s    StreamComm
	opts Options
	poll poller

	wmu sync.Mutex

	mu      sync.Mutex
	handler BlockHandler
}

// NewBlockOverStream wraps s.
func NewBlockOverStream(s StreamComm, opts ...Option) *BlockOverStream {
	return &BlockOverStream{s: s, opts: buildOptions(opts)}
}

// Connect connects the stream and starts the poll goroutine.
func (b *BlockOverStream) Connect() error {
	if b.s == nil {
		return ErrInvalidArgument
	}
	if err := b.s.Connect(); err != nil {
		return err
	}
	b.poll.start(&b.opts, "block-over-stream", b.run)
	return nil
}

// Disconnect stops the poll goroutine, waits for it to exit, then
// disconnects the stream. No block handler runs after Disconnect returns.
// Called from the block handler, it does not wait for the poll goroutine.
func (b *BlockOverStream) Disconnect() error {
	if b.s == nil {
		return ErrInvalidArgument
	}
	b.poll.stop()
	return b.s.Disconnect()
}

func (b *BlockOverStream) Connected() bool {
	return b.s != nil && b.s.Connected()
}

func (b *BlockOverStream) SetBlockHandler(h BlockHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// WriteBlock writes block onto the stream and flushes it.
func (b *BlockOverStream) WriteBlock(block []byte) error {
	if !b.Connected() {
		return ErrDisconnected
	}
	b.wmu.Lock()
	defer b.wmu.Unlock()
	if err := writeAll(b.s, block, b.opts.RetryDelay); err != nil {
		return errors.Wrap(err, "comm: write block")
	}
	return nil
}

func (b *BlockOverStream) run(ctx context.Context) error {
	chunk := make([]byte, b.opts.ChunkSize)
	return pollLoop(ctx, b.opts.PollInterval, func() (int, error) {
		n, err := b.s.Read(chunk)
		if n > 0 {
			b.deliver(copyBytes(chunk[:n]))
		}
		return n, err
	})
}

func (b *BlockOverStream) deliver(block []byte) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h == nil {
		b.opts.Logger.Debug("comm: block dropped, no handler", "len", len(block))
		return
	}
	h(block)
}

// StreamOverBlock exposes a BlockComm as a StreamComm.
//
// Every received block is appended verbatim to an inbound ring that Read
// consumes. Write appends to an outbound ring; Flush drains everything
// buffered into one block and sends it. Outbound block boundaries therefore
// follow the writer's Flush calls, not the individual writes.
//
// A full inbound ring drops its oldest bytes and reports ErrOverflow to the
// error handler.
type StreamOverBlock struct {
	b    BlockComm
	opts Options
	in   *ring.Input
	out  *ring.Output
}

// NewStreamOverBlock wraps b and installs itself as b's block handler.
func NewStreamOverBlock(b BlockComm, opts ...Option) *StreamOverBlock {
	o := buildOptions(opts)
	s := &StreamOverBlock{
		b:    b,
		opts: o,
		in:   ring.NewInput(o.RingCapacity),
		out:  ring.NewOutput(o.RingCapacity, nil),
	}
	s.out.SetNotify(s.sendBuffered)
	if b != nil {
		b.SetBlockHandler(s.receive)
	}
	return s
}

func (s *StreamOverBlock) Connect() error {
	if s.b == nil {
		return ErrInvalidArgument
	}
	return s.b.Connect()
}

// Disconnect disconnects the block transport and discards buffered bytes.
func (s *StreamOverBlock) Disconnect() error {
	if s.b == nil {
		return ErrInvalidArgument
	}
	err := s.b.Disconnect()
	s.in.Reset()
	s.out.Reset()
	return err
}

func (s *StreamOverBlock) Connected() bool {
	return s.b != nil && s.b.Connected()
}

// Read copies buffered inbound bytes into p. It returns (0, ErrWouldBlock)
// when nothing has arrived.
func (s *StreamOverBlock) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

// Write buffers p for the next Flush. A full outbound ring reports
// ErrOverflow or ErrCapacityExceeded.
func (s *StreamOverBlock) Write(p []byte) (int, error) {
	if !s.Connected() {
		return 0, ErrDisconnected
	}
	return s.out.Write(p)
}

// Flush sends all buffered outbound bytes as one block.
func (s *StreamOverBlock) Flush() error {
	return s.out.Flush()
}

// Available returns the number of inbound bytes ready to Read.
func (s *StreamOverBlock) Available() int {
	return s.in.Available()
}

func (s *StreamOverBlock) sendBuffered() error {
	block := s.out.Drain()
	if len(block) == 0 {
		return nil
	}
	if err := s.b.WriteBlock(block); err != nil {
		return errors.Wrap(err, "comm: flush stream")
	}
	return nil
}

func (s *StreamOverBlock) receive(block []byte) {
	if err := s.in.Put(block); err != nil {
		s.opts.Logger.Warn("comm: inbound stream buffer overflow",
			"block_len", len(block), "capacity", s.opts.RingCapacity, "error", err)
		s.opts.report(err)
	}
}
