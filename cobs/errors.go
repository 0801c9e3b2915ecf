// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cobs

import "github.com/pkg/errors"

// ErrCodec matches every error produced by the codec, the Reader and the Writer
// when a message or frame is rejected. The offending unit is dropped; the
// component stays usable.
var ErrCodec = errors.New("cobs: codec error")

var (
	// ErrEmptySource reports an attempt to stuff a zero-length message.
	ErrEmptySource error = &codecError{"cobs: empty source"}

	// ErrSourceTooLong reports a message longer than MaxMessageLen (or the configured limit).
	ErrSourceTooLong error = &codecError{"cobs: source too long"}

	// ErrDestinationTooSmall reports a destination buffer that cannot hold the result.
	ErrDestinationTooSmall error = &codecError{"cobs: destination too small"}

	// ErrFrameTooShort reports a frame shorter than the 3-byte minimum.
	ErrFrameTooShort error = &codecError{"cobs: frame too short"}

	// ErrFrameTooLong reports a frame longer than MaxFrameLen.
	ErrFrameTooLong error = &codecError{"cobs: frame too long"}

	// ErrCorruptFrame reports a frame whose length bytes do not describe its content.
	ErrCorruptFrame error = &codecError{"cobs: corrupt frame"}

	// ErrInvalidArgument reports a nil reader or writer.
	ErrInvalidArgument = errors.New("cobs: invalid argument")
)

type codecError struct{ msg string }

func (e *codecError) Error() string { return e.msg }

func (e *codecError) Is(target error) bool { return target == ErrCodec }

// frameError is what the Reader reports when an accumulated frame cannot be
// decoded for a reason other than ErrCorruptFrame itself.
type frameError struct{ cause error }

func (e *frameError) Error() string { return "cobs: corrupt frame: " + e.cause.Error() }

func (e *frameError) Is(target error) bool { return target == ErrCorruptFrame || target == ErrCodec }

func (e *frameError) Unwrap() error { return e.cause }

func corrupt(cause error) error {
	if cause == ErrCorruptFrame {
		return cause
	}
	return &frameError{cause: cause}
}
