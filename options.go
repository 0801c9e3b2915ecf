// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"time"

	"code.hybscloud.com/comm/cobs"
	"code.hybscloud.com/comm/internal/logging"
	"code.hybscloud.com/comm/internal/ring"
)

// Framing selects how NewMessenger marks message boundaries.
//
// The messenger adapts the transport to the framing:
//   - FramingAuto: COBS on stream transports, transparent on block transports.
//   - FramingCOBS: COBS frames. Block transports are wrapped in StreamOverBlock.
//   - FramingTransparent: no codec. Stream transports are wrapped in
//     BlockOverStream and each read chunk becomes one message.
type Framing uint8

const (
	FramingAuto        Framing = 0
	FramingCOBS        Framing = 1
	FramingTransparent Framing = 2
)

func (f Framing) String() string {
	switch f {
	case FramingCOBS:
		return "cobs"
	case FramingTransparent:
		return "transparent"
	default:
		return "auto"
	}
}

// ParseFraming maps a framing name to its Framing. The empty string is FramingAuto.
func ParseFraming(s string) (Framing, error) {
	switch s {
	case "", "auto":
		return FramingAuto, nil
	case "cobs":
		return FramingCOBS, nil
	case "transparent":
		return FramingTransparent, nil
	default:
		return FramingAuto, ErrInvalidArgument
	}
}

// Logger is the structured logger used by this package. *slog.Logger satisfies it.
type Logger = logging.Logger

// Options configures adapters, pipes, messengers and forwarders.
type Options struct {
	Framing Framing

	// PollInterval is the idle wait between reads of a poll task.
	PollInterval time.Duration

	// ChunkSize caps the bytes BlockOverStream delivers as one block.
	ChunkSize int

	// RingCapacity sizes each ring buffer of StreamOverBlock and PipeStream.
	RingCapacity int

	// ReaderBufferSize is the COBS reader's scratch size for one poll.
	ReaderBufferSize int

	// MaxMessageLen caps COBS message length; at most cobs.MaxMessageLen.
	MaxMessageLen int

	// RetryDelay controls how writes handle iox.ErrWouldBlock from a stream:
	//   - negative: nonblock, return ErrWouldBlock immediately
	//   - zero: yield (runtime.Gosched) and retry
	//   - positive: sleep for the duration and retry
	RetryDelay time.Duration

	// OnError receives errors with no caller to return to.
	OnError ErrorHandler

	Logger Logger
}

const (
	DefaultPollInterval = 20 * time.Millisecond
	DefaultChunkSize    = 256
)

var defaultOptions = Options{
	Framing:          FramingAuto,
	PollInterval:     DefaultPollInterval,
	ChunkSize:        DefaultChunkSize,
	RingCapacity:     ring.DefaultCapacity,
	ReaderBufferSize: cobs.DefaultReaderBufferSize,
	MaxMessageLen:    cobs.MaxMessageLen,
	RetryDelay:       time.Millisecond,
}

func buildOptions(opts []Option) Options {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.RingCapacity <= 0 {
		o.RingCapacity = ring.DefaultCapacity
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// cobsOptions carries the codec-related settings over to package cobs.
func (o *Options) cobsOptions() []cobs.Option {
	return []cobs.Option{
		cobs.WithMaxMessageLen(o.MaxMessageLen),
		cobs.WithReaderBufferSize(o.ReaderBufferSize),
		cobs.WithRetryDelay(o.RetryDelay),
		cobs.WithLogger(o.Logger),
	}
}

// report hands err to the error handler, if any.
func (o *Options) report(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

type Option func(*Options)

func WithFraming(f Framing) Option {
	return func(o *Options) { o.Framing = f }
}

func WithPollInterval(d time.Duration) Option {
	return func(o *Options) { o.PollInterval = d }
}

func WithChunkSize(n int) Option {
	return func(o *Options) { o.ChunkSize = n }
}

func WithRingCapacity(n int) Option {
	return func(o *Options) { o.RingCapacity = n }
}

func WithReaderBufferSize(n int) Option {
	return func(o *Options) { o.ReaderBufferSize = n }
}

func WithMaxMessageLen(n int) Option {
	return func(o *Options) { o.MaxMessageLen = n }
}

// WithRetryDelay sets the retry/wait policy used when a stream write returns iox.ErrWouldBlock.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithBlock enables cooperative blocking (yield-and-retry) on iox.ErrWouldBlock.
func WithBlock() Option {
	return func(o *Options) { o.RetryDelay = 0 }
}

// WithNonblock forces non-blocking writes (return iox.ErrWouldBlock immediately).
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}

// WithErrorHandler sets the handler for errors with no caller to return to.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) { o.OnError = h }
}

func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}
