// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cobs

import (
	"time"

	"code.hybscloud.com/comm/internal/logging"
)

// MessageHandler receives one decoded message. The slice is owned by the handler.
type MessageHandler func(msg []byte)

// ErrorHandler receives one rejected frame's error.
type ErrorHandler func(err error)

// Logger is the structured logger used by Reader and Writer. *slog.Logger satisfies it.
type Logger = logging.Logger

// Options configures Reader and Writer.
type Options struct {
	// MaxMessageLen caps decoded and encoded message length. Values outside
	// 1..MaxMessageLen fall back to MaxMessageLen.
	MaxMessageLen int

	// ReaderBufferSize is the scratch size for one Reader.ReadOnce poll.
	ReaderBufferSize int

	// RetryDelay controls how Writer handles iox.ErrWouldBlock from the sink:
	//   - negative: return ErrWouldBlock immediately (the frame may be cut; the
	//     peer resynchronizes on the next delimiter)
	//   - zero: yield (runtime.Gosched) and retry
	//   - positive: sleep for the duration and retry
	RetryDelay time.Duration

	OnMessage MessageHandler
	OnError   ErrorHandler
	Logger    Logger
}

const (
	// DefaultReaderBufferSize is the Reader's scratch size when none is configured.
	DefaultReaderBufferSize = 1024
)

var defaultOptions = Options{
	MaxMessageLen:    MaxMessageLen,
	ReaderBufferSize: DefaultReaderBufferSize,
	RetryDelay:       time.Millisecond,
}

func buildOptions(opts []Option) Options {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxMessageLen <= 0 || o.MaxMessageLen > MaxMessageLen {
		o.MaxMessageLen = MaxMessageLen
	}
	if o.ReaderBufferSize <= 0 {
		o.ReaderBufferSize = DefaultReaderBufferSize
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

type Option func(*Options)

func WithMaxMessageLen(n int) Option {
	return func(o *Options) { o.MaxMessageLen = n }
}

func WithReaderBufferSize(n int) Option {
	return func(o *Options) { o.ReaderBufferSize = n }
}

// WithRetryDelay sets the retry/wait policy used when the sink returns iox.ErrWouldBlock.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithNonblock makes Writer return iox.ErrWouldBlock immediately.
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}

// WithMessageHandler sets the Reader's decoded-message callback.
func WithMessageHandler(h MessageHandler) Option {
	return func(o *Options) { o.OnMessage = h }
}

// WithErrorHandler sets the Reader's rejected-frame callback.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) { o.OnError = h }
}

func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}
