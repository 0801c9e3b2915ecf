// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcomm

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"code.hybscloud.com/comm"
	"code.hybscloud.com/comm/internal/routine"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrNoPeer reports a listening UDP transport that has not yet received a
// datagram, so it has nowhere to send.
var ErrNoPeer = errors.New("netcomm: no peer address yet")

// UDP is a comm.BlockComm over one UDP socket; one datagram is one block.
//
// A dialed UDP sends to its fixed remote. A listening UDP replies to the
// source of the most recent datagram it received.
type UDP struct {
	addr   string
	listen bool
	opts   Options

	mu      sync.Mutex
	conn    *net.UDPConn
	peer    *net.UDPAddr
	handler comm.BlockHandler
	cancel  context.CancelFunc
	group   *errgroup.Group
	owner   uint64 // goroutine id of the receive loop
}

// DialUDP returns a UDP transport that sends to addr once connected.
func DialUDP(addr string, opts ...Option) *UDP {
	return &UDP{addr: withDefaultPort(addr), opts: buildOptions(opts, DefaultUDPReadTimeout)}
}

// ListenUDP returns a UDP transport bound to addr once connected. An empty
// addr binds all interfaces on DefaultPort.
func ListenUDP(addr string, opts ...Option) *UDP {
	return &UDP{addr: withDefaultPort(addr), listen: true, opts: buildOptions(opts, DefaultUDPReadTimeout)}
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
}

// Connect opens the socket and starts the receive goroutine.
func (u *UDP) Connect() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn != nil {
		return nil
	}
	ua, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return errors.Wrapf(err, "netcomm: resolve %s", u.addr)
	}
	var conn *net.UDPConn
	if u.listen {
		conn, err = net.ListenUDP("udp", ua)
	} else {
		conn, err = net.DialUDP("udp", nil, ua)
	}
	if err != nil {
		return errors.Wrapf(err, "netcomm: open udp %s", u.addr)
	}
	u.conn = conn
	u.peer = nil
	if !u.listen {
		u.peer = ua
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, child := errgroup.WithContext(ctx)
	group.Go(func() error {
		u.mu.Lock()
		if u.conn == conn {
			u.owner = routine.ID()
		}
		u.mu.Unlock()
		return u.receive(child, conn)
	})
	u.cancel, u.group = cancel, group
	u.opts.Logger.Info("netcomm: udp connected", "local", conn.LocalAddr().String(), "listen", u.listen)
	return nil
}

// Disconnect closes the socket and waits for the receive goroutine to exit.
// No block handler runs after Disconnect returns. Called from the block
// handler, it does not wait.
func (u *UDP) Disconnect() error {
	u.mu.Lock()
	conn, cancel, group, owner := u.conn, u.cancel, u.group, u.owner
	u.conn, u.cancel, u.group, u.owner = nil, nil, nil, 0
	u.mu.Unlock()
	if conn == nil {
		return nil
	}
	cancel()
	err := conn.Close()
	if owner != routine.ID() {
		_ = group.Wait()
	}
	u.opts.Logger.Info("netcomm: udp disconnected", "local", conn.LocalAddr().String())
	return err
}

func (u *UDP) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn != nil
}

// LocalAddr returns the bound address, or nil while disconnected.
func (u *UDP) LocalAddr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Peer returns the address WriteBlock sends to, or nil if none is known.
func (u *UDP) Peer() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.peer == nil {
		return nil
	}
	return u.peer
}

func (u *UDP) SetBlockHandler(h comm.BlockHandler) {
	u.mu.Lock()
	u.handler = h
	u.mu.Unlock()
}

// WriteBlock sends block as one datagram.
func (u *UDP) WriteBlock(block []byte) error {
	u.mu.Lock()
	conn, peer := u.conn, u.peer
	u.mu.Unlock()
	if conn == nil {
		return comm.ErrDisconnected
	}
	var err error
	switch {
	case !u.listen:
		_, err = conn.Write(block)
	case peer == nil:
		return ErrNoPeer
	default:
		_, err = conn.WriteToUDP(block, peer)
	}
	if err != nil {
		return errors.Wrap(err, "netcomm: udp send")
	}
	return nil
}

// release forgets conn after its receive loop failed, so Connected reports
// false and the next Connect opens a fresh socket.
func (u *UDP) release(conn *net.UDPConn) {
	u.mu.Lock()
	if u.conn != conn {
		u.mu.Unlock()
		return
	}
	cancel := u.cancel
	u.conn, u.cancel, u.group, u.owner = nil, nil, nil, 0
	u.mu.Unlock()
	cancel()
	_ = conn.Close()
}

func (u *UDP) receive(ctx context.Context, conn *net.UDPConn) error {
	buf := make([]byte, u.opts.BufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(u.opts.ReadTimeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			u.release(conn)
			u.opts.Logger.Error("netcomm: udp receive failed", "error", err)
			if u.opts.OnError != nil {
				u.opts.OnError(err)
			}
			return err
		}
		block := make([]byte, n)
		copy(block, buf[:n])

		u.mu.Lock()
		if u.listen {
			u.peer = from
		}
		h := u.handler
		u.mu.Unlock()

		if h == nil {
			u.opts.Logger.Debug("netcomm: datagram dropped, no handler", "from", from.String(), "len", n)
			continue
		}
		h(block)
	}
}
