// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import "time"

// Transport option helpers and mapping.
//
// Single source of truth, transport → (Framing, PollInterval, ChunkSize):
//   - Serial → COBS,        20ms, 256  // byte stream, low rate
//   - TCP    → COBS,         1ms, 1024 // byte stream
//   - UDP    → Transparent,  1ms, 1024 // datagrams preserve boundaries
//   - Pipe   → Transparent,  1ms, 1024 // in-process blocks or streams
//
// A later option overrides what a preset set.

type transportKind uint8

const (
	transportSerial transportKind = iota
	transportTCP
	transportUDP
	transportPipe
)

func defaultsFor(kind transportKind) (Framing, time.Duration, int) {
	switch kind {
	case transportSerial:
		return FramingCOBS, DefaultPollInterval, DefaultChunkSize
	case transportTCP:
		return FramingCOBS, time.Millisecond, 1024
	case transportUDP:
		return FramingTransparent, time.Millisecond, 1024
	case transportPipe:
		return FramingTransparent, time.Millisecond, 1024
	default:
		return FramingAuto, DefaultPollInterval, DefaultChunkSize
	}
}

func withTransport(kind transportKind) Option {
	return func(o *Options) {
		o.Framing, o.PollInterval, o.ChunkSize = defaultsFor(kind)
	}
}

// WithSerial configures messaging over a serial port: COBS framing, 20ms poll, 256-byte chunks.
func WithSerial() Option { return withTransport(transportSerial) }

// WithTCP configures messaging over TCP: COBS framing, 1ms poll, 1KiB chunks.
func WithTCP() Option { return withTransport(transportTCP) }

// WithUDP configures messaging over UDP: transparent framing, one datagram per message.
func WithUDP() Option { return withTransport(transportUDP) }

// WithPipe configures messaging over in-process pipes: transparent framing, 1ms poll.
func WithPipe() Option { return withTransport(transportPipe) }

// TransportOption returns the preset for a transport name: "serial", "tcp",
// "udp" or "pipe".
func TransportOption(name string) (Option, error) {
	switch name {
	case "serial":
		return WithSerial(), nil
	case "tcp":
		return WithTCP(), nil
	case "udp":
		return WithUDP(), nil
	case "pipe":
		return WithPipe(), nil
	default:
		return nil, ErrInvalidArgument
	}
}
