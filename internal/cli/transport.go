// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"

	"code.hybscloud.com/comm"
	"code.hybscloud.com/comm/netcomm"
	"code.hybscloud.com/comm/serialcomm"
	"github.com/pkg/errors"
)

// dial returns the configured transport in its initiating role: a UDP or TCP
// client, or the serial port.
func (a *App) dial() (comm.Comm, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	switch a.cfg.Transport {
	case "udp":
		return netcomm.DialUDP(a.cfg.Addr, a.netOptions()...), nil
	case "tcp":
		return netcomm.DialTCP(a.cfg.Addr, a.netOptions()...), nil
	default:
		return a.serial(), nil
	}
}

// listen returns the configured transport in its passive role: a bound UDP
// socket, the first accepted TCP connection, or the serial port.
func (a *App) listen(ctx context.Context) (comm.Comm, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	switch a.cfg.Transport {
	case "udp":
		return netcomm.ListenUDP(a.cfg.Addr, a.netOptions()...), nil
	case "tcp":
		ln, err := netcomm.ListenTCP(a.cfg.Addr, a.netOptions()...)
		if err != nil {
			return nil, err
		}
		defer ln.Close()
		a.logger.Info("waiting for a tcp connection", "addr", ln.Addr().String())
		stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
		defer stop()
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrap(err, "accept")
		}
		return conn, nil
	default:
		return a.serial(), nil
	}
}

func (a *App) serial() *serialcomm.Stream {
	s := a.cfg.Serial
	opts := []serialcomm.Option{serialcomm.WithLogger(a.logger)}
	if a.SerialOpener != nil {
		opts = append(opts, serialcomm.WithOpener(a.SerialOpener))
	}
	return serialcomm.New(serialcomm.Config{
		PortName:    s.PortName,
		BaudRate:    s.BaudRate,
		DataBits:    s.DataBits,
		Parity:      s.Parity,
		StopBits:    s.StopBits,
		ReadTimeout: a.cfg.ReadTimeout,
	}, opts...)
}

func (a *App) netOptions() []netcomm.Option {
	return []netcomm.Option{
		netcomm.WithLogger(a.logger),
		netcomm.WithReadTimeout(a.cfg.ReadTimeout),
	}
}

// messenger wraps c per the transport preset and the configured framing.
func (a *App) messenger(c comm.Comm) (comm.Messenger, error) {
	preset, err := comm.TransportOption(a.cfg.Transport)
	if err != nil {
		return nil, errors.Errorf("unknown transport %q", a.cfg.Transport)
	}
	framing, err := comm.ParseFraming(a.cfg.Framing)
	if err != nil {
		return nil, errors.Errorf("unknown framing %q", a.cfg.Framing)
	}
	opts := []comm.Option{
		preset,
		comm.WithLogger(a.logger),
		comm.WithErrorHandler(func(err error) {
			a.logger.Warn("receive error", "error", err)
		}),
	}
	if framing != comm.FramingAuto {
		opts = append(opts, comm.WithFraming(framing))
	}
	if a.cfg.PollInterval > 0 {
		opts = append(opts, comm.WithPollInterval(a.cfg.PollInterval))
	}
	return comm.NewMessenger(c, opts...)
}

// connect opens a messenger over c with h installed before any input is read.
func (a *App) connect(c comm.Comm, h comm.MessageHandler) (comm.Messenger, error) {
	m, err := a.messenger(c)
	if err != nil {
		return nil, err
	}
	m.SetMessageHandler(h)
	if err := m.Connect(); err != nil {
		return nil, err
	}
	return m, nil
}

// closeDraining disconnects m while discarding messages still queued on
// inbox, so a poll goroutine blocked on the channel can exit.
func closeDraining(m comm.Messenger, inbox <-chan []byte) {
	done := make(chan struct{})
	go func() {
		_ = m.Disconnect()
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		case <-inbox:
		}
	}
}
