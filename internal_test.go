// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"code.hybscloud.com/comm/cobs"
	"code.hybscloud.com/comm/internal/logging"
)

// --- Internal helpers ---

// scriptedWriter returns its steps in order, then accepts everything.
type scriptedWriter struct {
	steps []struct {
		n   int
		err error
	}
	buf     bytes.Buffer
	flushed int
}

func (w *scriptedWriter) Write(p []byte) (int, error) {
	if len(w.steps) == 0 {
		return w.buf.Write(p)
	}
	st := w.steps[0]
	w.steps = w.steps[1:]
	n := min(st.n, len(p))
	w.buf.Write(p[:n])
	return n, st.err
}

func (w *scriptedWriter) Flush() error {
	w.flushed++
	return nil
}

func TestBuildOptions_Defaults(t *testing.T) {
	o := buildOptions(nil)
	if o.PollInterval != DefaultPollInterval || o.ChunkSize != DefaultChunkSize {
		t.Fatalf("poll=%v chunk=%d", o.PollInterval, o.ChunkSize)
	}
	if o.RingCapacity != 1024 || o.ReaderBufferSize != cobs.DefaultReaderBufferSize {
		t.Fatalf("ring=%d reader=%d", o.RingCapacity, o.ReaderBufferSize)
	}
	if o.MaxMessageLen != cobs.MaxMessageLen || o.Framing != FramingAuto || o.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", o)
	}

	o = buildOptions([]Option{WithPollInterval(-1), WithChunkSize(0), WithRingCapacity(-5)})
	if o.PollInterval != DefaultPollInterval || o.ChunkSize != DefaultChunkSize || o.RingCapacity != 1024 {
		t.Fatalf("non-positive values not clamped: %+v", o)
	}
}

func TestBuildOptions_PresetThenOverride(t *testing.T) {
	o := buildOptions([]Option{WithTCP(), WithPollInterval(5 * time.Millisecond)})
	if o.Framing != FramingCOBS || o.PollInterval != 5*time.Millisecond || o.ChunkSize != 1024 {
		t.Fatalf("got %+v", o)
	}
	o = buildOptions([]Option{WithFraming(FramingCOBS), WithUDP()})
	if o.Framing != FramingTransparent {
		t.Fatalf("later preset did not win: %v", o.Framing)
	}
}

func TestWriteAll_RetriesWouldBlockAndFlushes(t *testing.T) {
	w := &scriptedWriter{}
	w.steps = append(w.steps,
		struct {
			n   int
			err error
		}{2, ErrWouldBlock},
		struct {
			n   int
			err error
		}{0, ErrWouldBlock},
	)
	if err := writeAll(w, []byte("abcdef"), 0); err != nil {
		t.Fatalf("err=%v", err)
	}
	if w.buf.String() != "abcdef" || w.flushed != 1 {
		t.Fatalf("buf=%q flushed=%d", w.buf.String(), w.flushed)
	}
}

func TestWriteAll_NonblockSurfacesWouldBlock(t *testing.T) {
	w := &scriptedWriter{}
	w.steps = append(w.steps, struct {
		n   int
		err error
	}{1, ErrWouldBlock})
	if err := writeAll(w, []byte("abc"), -1); err != ErrWouldBlock {
		t.Fatalf("err=%v", err)
	}
	if w.flushed != 0 {
		t.Fatalf("flushed a partial write")
	}
}

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestWriteAll_NoProgressGuard(t *testing.T) {
	if err := writeAll(zeroWriter{}, []byte("x"), 0); err != io.ErrShortWrite {
		t.Fatalf("err=%v", err)
	}
}

func TestPollLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := pollLoop(ctx, time.Millisecond, func() (int, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return 0, ErrWouldBlock
	})
	if !errors.Is(err, context.Canceled) || calls != 3 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestPollLoop_ReturnsStepFailure(t *testing.T) {
	boom := errors.New("boom")
	err := pollLoop(context.Background(), time.Millisecond, func() (int, error) {
		return 0, boom
	})
	if err != boom {
		t.Fatalf("err=%v", err)
	}
}

func TestPollLoop_ProgressSkipsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	_ = pollLoop(ctx, time.Hour, func() (int, error) {
		calls++
		if calls == 100 {
			cancel()
		}
		return 1, nil
	})
	if calls != 100 || time.Since(start) > time.Minute {
		t.Fatalf("calls=%d", calls)
	}
}

func TestPoller_StopWaitsAndIsIdempotent(t *testing.T) {
	o := buildOptions([]Option{WithLogger(logging.Discard())})
	var p poller
	exited := make(chan struct{})
	p.start(&o, "test", func(ctx context.Context) error {
		defer close(exited)
		<-ctx.Done()
		return ctx.Err()
	})
	// A second start while running is a no-op.
	p.start(&o, "test", func(context.Context) error {
		t.Errorf("second poll goroutine started")
		return nil
	})
	p.stop()
	select {
	case <-exited:
	default:
		t.Fatalf("stop returned before the poll goroutine exited")
	}
	p.stop()
}

func TestPoller_ReportsFailure(t *testing.T) {
	reported := make(chan error, 1)
	o := buildOptions([]Option{
		WithLogger(logging.Discard()),
		WithErrorHandler(func(err error) { reported <- err }),
	})
	var p poller
	p.start(&o, "test", func(context.Context) error { return io.ErrUnexpectedEOF })
	select {
	case err := <-reported:
		if err != io.ErrUnexpectedEOF {
			t.Fatalf("reported=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("failure not reported")
	}
	p.stop()
}

func TestPoller_RestartsAfterFailure(t *testing.T) {
	reported := make(chan error, 1)
	o := buildOptions([]Option{
		WithLogger(logging.Discard()),
		WithErrorHandler(func(err error) { reported <- err }),
	})
	var p poller
	p.start(&o, "test", func(context.Context) error { return io.ErrUnexpectedEOF })
	select {
	case <-reported:
	case <-time.After(2 * time.Second):
		t.Fatalf("failure not reported")
	}

	// The failed poll is already forgotten when its error is reported.
	restarted := make(chan struct{})
	p.start(&o, "test", func(ctx context.Context) error {
		close(restarted)
		<-ctx.Done()
		return ctx.Err()
	})
	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("start after a failed poll did not launch a new one")
	}
	p.stop()
}

func TestPoller_StopFromPollGoroutineDoesNotWait(t *testing.T) {
	o := buildOptions([]Option{WithLogger(logging.Discard())})
	var p poller
	stopped := make(chan struct{})
	exited := make(chan error, 1)
	p.start(&o, "test", func(ctx context.Context) error {
		p.stop()
		close(stopped)
		<-ctx.Done()
		exited <- ctx.Err()
		return ctx.Err()
	})
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("stop from the poll goroutine blocked")
	}
	if err := <-exited; err != context.Canceled {
		t.Fatalf("ctx err=%v", err)
	}
	p.stop()
}
