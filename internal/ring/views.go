// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import "sync"

// Input is the inbound view of a Buffer: its owner puts data in, and the
// outside world reads it as a non-blocking stream.
type Input struct {
	b *Buffer
}

// NewInput returns an Input backed by a Buffer of the given capacity.
func NewInput(capacity int) *Input { return &Input{b: New(capacity)} }

// Put appends p. See Buffer.Write for the overflow policy.
func (in *Input) Put(p []byte) error {
	_, err := in.b.Write(p)
	return err
}

func (in *Input) Read(p []byte) (int, error) { return in.b.Read(p) }

func (in *Input) Available() int { return in.b.Available() }

func (in *Input) Reset() { in.b.Reset() }

// Output is the outbound view of a Buffer: the outside world writes a stream
// into it and calls Flush to announce that data is available; the owner
// drains it from the notification.
type Output struct {
	b *Buffer

	mu     sync.Mutex
	notify func() error
}

// NewOutput returns an Output backed by a Buffer of the given capacity.
// notify may be nil and set later with SetNotify.
func NewOutput(capacity int, notify func() error) *Output {
	return &Output{b: New(capacity), notify: notify}
}

// SetNotify replaces the data-available callback.
func (o *Output) SetNotify(fn func() error) {
	o.mu.Lock()
	o.notify = fn
	o.mu.Unlock()
}

func (o *Output) Write(p []byte) (int, error) { return o.b.Write(p) }

// Flush invokes the data-available callback. No lock is held while it runs.
func (o *Output) Flush() error {
	o.mu.Lock()
	fn := o.notify
	o.mu.Unlock()
	if fn == nil || o.b.Available() == 0 {
		return nil
	}
	return fn()
}

func (o *Output) Available() int { return o.b.Available() }

// Drain returns and removes every buffered byte.
func (o *Output) Drain() []byte { return o.b.Drain() }

func (o *Output) Reset() { o.b.Reset() }
