// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package netcomm provides network transports for package comm: UDP as a
// comm.BlockComm and TCP as a comm.StreamComm.
//
// Every blocking read carries a deadline, so a poll goroutine notices a
// Disconnect within one ReadTimeout at most. A TCP read that times out
// returns comm.ErrWouldBlock.
package netcomm

import (
	"time"

	"code.hybscloud.com/comm"
	"code.hybscloud.com/comm/internal/logging"
)

const (
	// DefaultPort is the UDP port used when an address has none.
	DefaultPort = 1234

	// DefaultBufferSize is the largest datagram UDP receives intact.
	DefaultBufferSize = 1024

	// DefaultUDPReadTimeout bounds one UDP receive.
	DefaultUDPReadTimeout = time.Second

	// DefaultTCPReadTimeout bounds one TCP read.
	DefaultTCPReadTimeout = 100 * time.Millisecond
)

// Options configures UDP and TCP transports.
type Options struct {
	// ReadTimeout bounds one read. Zero selects the transport's default.
	ReadTimeout time.Duration

	// BufferSize is the UDP receive buffer; longer datagrams are truncated.
	BufferSize int

	// OnError receives a failure of the UDP receive goroutine.
	OnError comm.ErrorHandler

	Logger comm.Logger
}

func buildOptions(opts []Option, readTimeout time.Duration) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = readTimeout
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

type Option func(*Options)

func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) { o.ReadTimeout = d }
}

func WithBufferSize(n int) Option {
	return func(o *Options) { o.BufferSize = n }
}

func WithErrorHandler(h comm.ErrorHandler) Option {
	return func(o *Options) { o.OnError = h }
}

func WithLogger(l comm.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
