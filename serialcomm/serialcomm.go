// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package serialcomm provides a serial port as a comm.StreamComm.
//
// Reads wait at most Config.ReadTimeout; a read that times out returns
// comm.ErrWouldBlock. Flush drains the port's output buffer.
package serialcomm

import (
	"io"
	"strings"
	"sync"
	"time"

	"code.hybscloud.com/comm"
	"code.hybscloud.com/comm/internal/logging"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate    = 9600
	DefaultDataBits    = 8
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config describes one serial port. Zero fields take the 9600 8N1 defaults.
type Config struct {
	PortName string
	BaudRate int
	DataBits int
	// Parity is "none", "odd", "even", "mark" or "space".
	Parity string
	// StopBits is "1", "1.5" or "2".
	StopBits    string
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.DataBits <= 0 {
		c.DataBits = DefaultDataBits
	}
	if c.Parity == "" {
		c.Parity = "none"
	}
	if c.StopBits == "" {
		c.StopBits = "1"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Mode converts the line settings to a serial.Mode.
func (c Config) Mode() (*serial.Mode, error) {
	c = c.withDefaults()
	m := &serial.Mode{BaudRate: c.BaudRate, DataBits: c.DataBits}
	switch strings.ToLower(c.Parity) {
	case "none", "n":
		m.Parity = serial.NoParity
	case "odd", "o":
		m.Parity = serial.OddParity
	case "even", "e":
		m.Parity = serial.EvenParity
	case "mark", "m":
		m.Parity = serial.MarkParity
	case "space", "s":
		m.Parity = serial.SpaceParity
	default:
		return nil, errors.Wrapf(comm.ErrInvalidArgument, "serialcomm: parity %q", c.Parity)
	}
	switch c.StopBits {
	case "1":
		m.StopBits = serial.OneStopBit
	case "1.5":
		m.StopBits = serial.OnePointFiveStopBits
	case "2":
		m.StopBits = serial.TwoStopBits
	default:
		return nil, errors.Wrapf(comm.ErrInvalidArgument, "serialcomm: stop bits %q", c.StopBits)
	}
	return m, nil
}

// Port is the part of serial.Port this package uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	Drain() error
}

// Opener opens a port by name.
type Opener func(name string, mode *serial.Mode) (Port, error)

func openSerial(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Stream is a serial port transport.
type Stream struct {
	cfg    Config
	open   Opener
	logger comm.Logger

	mu   sync.Mutex
	port Port
}

type Option func(*Stream)

// WithOpener replaces the function used to open the port.
func WithOpener(fn Opener) Option {
	return func(s *Stream) { s.open = fn }
}

func WithLogger(l comm.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// New returns a disconnected Stream for cfg.
func New(cfg Config, opts ...Option) *Stream {
	s := &Stream{cfg: cfg.withDefaults(), open: openSerial}
	for _, fn := range opts {
		fn(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// Connect opens the port. It fails with comm.ErrInvalidArgument when no
// port name is configured.
func (s *Stream) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	if s.cfg.PortName == "" {
		return errors.Wrap(comm.ErrInvalidArgument, "serialcomm: no port name")
	}
	mode, err := s.cfg.Mode()
	if err != nil {
		return err
	}
	port, err := s.open(s.cfg.PortName, mode)
	if err != nil {
		return errors.Wrapf(err, "serialcomm: open %s", s.cfg.PortName)
	}
	if err := port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return errors.Wrapf(err, "serialcomm: set read timeout on %s", s.cfg.PortName)
	}
	s.port = port
	s.logger.Info("serialcomm: port open", "port", s.cfg.PortName, "baud", s.cfg.BaudRate)
	return nil
}

func (s *Stream) Disconnect() error {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()
	if port == nil {
		return nil
	}
	s.logger.Info("serialcomm: port closed", "port", s.cfg.PortName)
	return port.Close()
}

func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *Stream) current() Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Read waits at most ReadTimeout for input.
func (s *Stream) Read(p []byte) (int, error) {
	port := s.current()
	if port == nil {
		return 0, comm.ErrDisconnected
	}
	n, err := port.Read(p)
	// serial reports an expired read timeout as (0, nil).
	if n == 0 && err == nil && len(p) > 0 {
		return 0, comm.ErrWouldBlock
	}
	return n, err
}

func (s *Stream) Write(p []byte) (int, error) {
	port := s.current()
	if port == nil {
		return 0, comm.ErrDisconnected
	}
	return port.Write(p)
}

// Flush waits until all written bytes have been transmitted.
func (s *Stream) Flush() error {
	port := s.current()
	if port == nil {
		return comm.ErrDisconnected
	}
	return port.Drain()
}
