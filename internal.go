// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package comm

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/comm/internal/routine"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// poller owns at most one background poll goroutine.
type poller struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	owner  uint64 // goroutine id of the running poll, 0 until it starts
}

// start launches run unless a poll goroutine is already running. A non-nil
// error from run other than cancellation is logged and reported. A poll that
// ended on its own is forgotten before the report, so the next start
// launches a fresh one.
func (p *poller) start(o *Options, name string, run func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, child := errgroup.WithContext(ctx)
	group.Go(func() error {
		p.mu.Lock()
		if p.group == group {
			p.owner = routine.ID()
		}
		p.mu.Unlock()

		o.Logger.Debug("comm: poll started", "task", name)
		err := run(child)
		p.release(group)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			o.Logger.Debug("comm: poll stopped", "task", name)
			return nil
		case errors.Is(err, io.EOF):
			o.Logger.Info("comm: poll reached end of stream", "task", name)
		default:
			o.Logger.Error("comm: poll failed", "task", name, "error", err)
		}
		o.report(err)
		return err
	})
	p.cancel, p.group = cancel, group
}

// release forgets group if it is still the current poll.
func (p *poller) release(group *errgroup.Group) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != group {
		return
	}
	p.cancel()
	p.cancel, p.group, p.owner = nil, nil, 0
}

// stop cancels the poll goroutine and waits until it has returned. Called
// from the poll goroutine itself, it only cancels: the current step finishes
// and no further step runs.
func (p *poller) stop() {
	p.mu.Lock()
	cancel, group, owner := p.cancel, p.group, p.owner
	p.cancel, p.group, p.owner = nil, nil, 0
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if owner == routine.ID() {
		return
	}
	_ = group.Wait()
}

// pollLoop calls step until ctx is done or step fails.
//
// After a step that made progress the next step runs immediately; an idle
// step (no bytes, ErrWouldBlock or io.ErrNoProgress) waits one interval.
func pollLoop(ctx context.Context, interval time.Duration, step func() (int, error)) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := step()
		if err != nil && !isIdle(err) {
			return err
		}
		if n > 0 {
			continue
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func isIdle(err error) bool {
	return err == ErrWouldBlock || err == ErrMore || err == io.ErrNoProgress ||
		errors.Is(err, ErrWouldBlock)
}

// waitOnce applies the retry policy after ErrWouldBlock and returns whether
// the caller should retry.
func waitOnce(retryDelay time.Duration) bool {
	if retryDelay < 0 {
		return false
	}
	if retryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(retryDelay)
	return true
}

// writeAll writes all of p to w, retrying ErrWouldBlock per retryDelay, and
// flushes w if it buffers.
func writeAll(w io.Writer, p []byte, retryDelay time.Duration) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		// Guard against broken Writers that violate the io.Writer contract by
		// returning (0, nil) on a non-empty buffer.
		if n == 0 && err == nil {
			return io.ErrShortWrite
		}
		p = p[n:]
		if err == nil {
			continue
		}
		if err != ErrWouldBlock || !waitOnce(retryDelay) {
			return err
		}
	}
	if f, ok := w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// copyBytes returns a copy of p that the receiver may keep.
func copyBytes(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
