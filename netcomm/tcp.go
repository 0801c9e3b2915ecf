// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcomm

import (
	"net"
	"sync"
	"time"

	"code.hybscloud.com/comm"
	"github.com/pkg/errors"
)

// TCP is a comm.StreamComm over one TCP connection.
//
// Read waits at most ReadTimeout and returns (0, comm.ErrWouldBlock) when
// nothing arrived in that time.
type TCP struct {
	addr string
	opts Options

	mu   sync.Mutex
	conn net.Conn
}

// DialTCP returns a TCP transport that dials addr on Connect.
func DialTCP(addr string, opts ...Option) *TCP {
	return &TCP{addr: addr, opts: buildOptions(opts, DefaultTCPReadTimeout)}
}

// NewTCPConn wraps an established connection. It starts connected; after
// Disconnect it cannot reconnect.
func NewTCPConn(conn net.Conn, opts ...Option) *TCP {
	return &TCP{conn: conn, opts: buildOptions(opts, DefaultTCPReadTimeout)}
}

func (t *TCP) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	if t.addr == "" {
		return comm.ErrInvalidArgument
	}
	conn, err := net.DialTimeout("tcp", t.addr, 10*time.Second)
	if err != nil {
		return errors.Wrapf(err, "netcomm: dial tcp %s", t.addr)
	}
	t.conn = conn
	t.opts.Logger.Info("netcomm: tcp connected", "remote", conn.RemoteAddr().String())
	return nil
}

func (t *TCP) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	t.opts.Logger.Info("netcomm: tcp disconnected", "remote", conn.RemoteAddr().String())
	return conn.Close()
}

func (t *TCP) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *TCP) current() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// Read reads whatever arrives within ReadTimeout.
func (t *TCP) Read(p []byte) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, comm.ErrDisconnected
	}
	_ = conn.SetReadDeadline(time.Now().Add(t.opts.ReadTimeout))
	n, err := conn.Read(p)
	var ne net.Error
	if err != nil && errors.As(err, &ne) && ne.Timeout() {
		if n > 0 {
			return n, nil
		}
		return 0, comm.ErrWouldBlock
	}
	return n, err
}

func (t *TCP) Write(p []byte) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, comm.ErrDisconnected
	}
	return conn.Write(p)
}

// TCPListener accepts TCP transports.
type TCPListener struct {
	ln   net.Listener
	opts []Option
}

// ListenTCP listens on addr. Accepted transports get opts.
func ListenTCP(addr string, opts ...Option) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "netcomm: listen tcp %s", addr)
	}
	return &TCPListener{ln: ln, opts: opts}, nil
}

// Accept waits for the next connection and returns it as a connected TCP.
func (l *TCPListener) Accept() (*TCP, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewTCPConn(conn, l.opts...), nil
}

func (l *TCPListener) Addr() net.Addr { return l.ln.Addr() }

func (l *TCPListener) Close() error { return l.ln.Close() }
