// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/comm/internal/ring"
)

// PipeStream is one end of an in-process stream pipe.
//
// Bytes written to one end are appended to the other end's inbound ring.
// Read never blocks; it returns (0, ErrWouldBlock) when the ring is empty.
// Writing requires both ends to be connected.
type PipeStream struct {
	peer      *PipeStream
	in        *ring.Buffer
	connected atomic.Bool
}

// NewStreamPipe returns two connected-to-each-other stream endpoints. Only
// RingCapacity is taken from opts.
func NewStreamPipe(opts ...Option) (*PipeStream, *PipeStream) {
	o := buildOptions(opts)
	a := &PipeStream{in: ring.New(o.RingCapacity)}
	b := &PipeStream{in: ring.New(o.RingCapacity)}
	a.peer, b.peer = b, a
	return a, b
}

// Connect attaches this end. It fails with ErrNoPeer on an endpoint that was
// not created by NewStreamPipe.
func (p *PipeStream) Connect() error {
	if p.peer == nil {
		return ErrNoPeer
	}
	p.connected.Store(true)
	return nil
}

// Disconnect detaches this end and drops its unread bytes.
func (p *PipeStream) Disconnect() error {
	if p.connected.Swap(false) && p.in != nil {
		p.in.Reset()
	}
	return nil
}

func (p *PipeStream) Connected() bool { return p.connected.Load() }

func (p *PipeStream) Read(b []byte) (int, error) {
	if !p.Connected() {
		return 0, ErrDisconnected
	}
	return p.in.Read(b)
}

// Write appends b to the peer's inbound ring. A full ring reports
// ErrOverflow or ErrCapacityExceeded.
func (p *PipeStream) Write(b []byte) (int, error) {
	if !p.Connected() || !p.peer.Connected() {
		return 0, ErrDisconnected
	}
	return p.peer.in.Write(b)
}

// Available returns the number of unread bytes at this end.
func (p *PipeStream) Available() int {
	if p.in == nil {
		return 0
	}
	return p.in.Available()
}

// PipeBlock is one end of an in-process block pipe.
//
// WriteBlock hands a copy of the block to the peer's handler on the caller's
// goroutine.
type PipeBlock struct {
	peer      *PipeBlock
	connected atomic.Bool

	mu      sync.Mutex
	handler BlockHandler
}

// NewBlockPipe returns two connected-to-each-other block endpoints.
func NewBlockPipe() (*PipeBlock, *PipeBlock) {
	a, b := &PipeBlock{}, &PipeBlock{}
	a.peer, b.peer = b, a
	return a, b
}

// Connect attaches this end. It fails with ErrNoPeer on an endpoint that was
// not created by NewBlockPipe.
func (p *PipeBlock) Connect() error {
	if p.peer == nil {
		return ErrNoPeer
	}
	p.connected.Store(true)
	return nil
}

func (p *PipeBlock) Disconnect() error {
	p.connected.Store(false)
	return nil
}

func (p *PipeBlock) Connected() bool { return p.connected.Load() }

func (p *PipeBlock) SetBlockHandler(h BlockHandler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

// WriteBlock delivers a copy of block to the peer. A peer without a handler
// drops the block, as a socket with no reader would.
func (p *PipeBlock) WriteBlock(block []byte) error {
	if !p.Connected() || !p.peer.Connected() {
		return ErrDisconnected
	}
	p.peer.mu.Lock()
	h := p.peer.handler
	p.peer.mu.Unlock()
	if h != nil {
		h(copyBytes(block))
	}
	return nil
}
