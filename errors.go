// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"code.hybscloud.com/comm/cobs"
	"code.hybscloud.com/comm/internal/ring"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument reports an invalid configuration or a nil transport.
	ErrInvalidArgument = errors.New("comm: invalid argument")

	// ErrDisconnected reports an operation on a transport that is not connected.
	ErrDisconnected = errors.New("comm: not connected")

	// ErrNoPeer reports a pipe endpoint that was not created as part of a pair.
	ErrNoPeer = errors.New("comm: pipe has no peer")
)

// Buffer errors. Both ErrCapacityExceeded and ErrOverflow match
// ErrBufferOverflow; data was lost but the buffer remains usable.
var (
	ErrBufferOverflow   = ring.ErrBufferOverflow
	ErrCapacityExceeded = ring.ErrCapacityExceeded
	ErrOverflow         = ring.ErrOverflow
)

// Codec errors. Every error returned or reported by the COBS codec matches ErrCodec.
var (
	ErrCodec        = cobs.ErrCodec
	ErrCorruptFrame = cobs.ErrCorruptFrame
)
