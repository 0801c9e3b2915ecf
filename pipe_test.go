// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/comm"
	"code.hybscloud.com/comm/internal/logging"
)

// --- Shared test helpers ---

const recvTimeout = 2 * time.Second

func quiet(opts ...comm.Option) []comm.Option {
	return append([]comm.Option{
		comm.WithLogger(logging.Discard()),
		comm.WithPollInterval(time.Millisecond),
	}, opts...)
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(recvTimeout):
		t.Fatalf("no message within %v", recvTimeout)
		return nil
	}
}

func mustConnect(t *testing.T, cs ...comm.Comm) {
	t.Helper()
	for _, c := range cs {
		if err := c.Connect(); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
}

// --- Pipes ---

func TestStreamPipe_ReadWouldBlockWhenEmpty(t *testing.T) {
	a, b := comm.NewStreamPipe()
	mustConnect(t, a, b)
	if n, err := b.Read(make([]byte, 8)); n != 0 || !errors.Is(err, comm.ErrWouldBlock) {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestStreamPipe_BytesFlowBothWays(t *testing.T) {
	a, b := comm.NewStreamPipe()
	mustConnect(t, a, b)
	if _, err := a.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := b.Write([]byte("pong")); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := make([]byte, 16)
	n, err := b.Read(p)
	if err != nil || string(p[:n]) != "ping" {
		t.Fatalf("b got %q err=%v", p[:n], err)
	}
	n, err = a.Read(p)
	if err != nil || string(p[:n]) != "pong" {
		t.Fatalf("a got %q err=%v", p[:n], err)
	}
}

func TestStreamPipe_WriteRequiresBothEnds(t *testing.T) {
	a, b := comm.NewStreamPipe()
	if _, err := a.Write([]byte("x")); !errors.Is(err, comm.ErrDisconnected) {
		t.Fatalf("err=%v", err)
	}
	mustConnect(t, a)
	if _, err := a.Write([]byte("x")); !errors.Is(err, comm.ErrDisconnected) {
		t.Fatalf("peer down: err=%v", err)
	}
	mustConnect(t, b)
	if _, err := a.Write([]byte("x")); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestStreamPipe_OverflowReported(t *testing.T) {
	a, b := comm.NewStreamPipe(comm.WithRingCapacity(4))
	mustConnect(t, a, b)
	if _, err := a.Write([]byte("abcdef")); !errors.Is(err, comm.ErrCapacityExceeded) {
		t.Fatalf("err=%v", err)
	}
	if b.Available() != 4 {
		t.Fatalf("available=%d", b.Available())
	}
}

func TestStreamPipe_DisconnectDropsUnread(t *testing.T) {
	a, b := comm.NewStreamPipe()
	mustConnect(t, a, b)
	_, _ = a.Write([]byte("stale"))
	_ = b.Disconnect()
	mustConnect(t, b)
	if b.Available() != 0 {
		t.Fatalf("available=%d", b.Available())
	}
}

func TestPipe_ZeroValueHasNoPeer(t *testing.T) {
	if err := new(comm.PipeStream).Connect(); !errors.Is(err, comm.ErrNoPeer) {
		t.Fatalf("stream: err=%v", err)
	}
	if err := new(comm.PipeBlock).Connect(); !errors.Is(err, comm.ErrNoPeer) {
		t.Fatalf("block: err=%v", err)
	}
}

func TestBlockPipe_DeliversCopy(t *testing.T) {
	x, y := comm.NewBlockPipe()
	mustConnect(t, x, y)
	var got [][]byte
	y.SetBlockHandler(func(b []byte) { got = append(got, b) })

	buf := []byte("first")
	if err := x.WriteBlock(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	copy(buf, "XXXXX")
	if len(got) != 1 || !bytes.Equal(got[0], []byte("first")) {
		t.Fatalf("got %q", got)
	}
}

func TestBlockPipe_WriteWhileDisconnected(t *testing.T) {
	x, y := comm.NewBlockPipe()
	mustConnect(t, x)
	if err := x.WriteBlock([]byte("x")); !errors.Is(err, comm.ErrDisconnected) {
		t.Fatalf("err=%v", err)
	}
	mustConnect(t, y)
	_ = x.Disconnect()
	if err := x.WriteBlock([]byte("x")); !errors.Is(err, comm.ErrDisconnected) {
		t.Fatalf("err=%v", err)
	}
}
