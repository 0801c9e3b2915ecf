// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"code.hybscloud.com/comm"
	"code.hybscloud.com/comm/internal/escape"
	"code.hybscloud.com/comm/netcomm"
	"code.hybscloud.com/comm/serialcomm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func printMessage(w io.Writer, msg []byte) {
	fmt.Fprintln(w, escape.Encode(msg))
}

func (a *App) sendCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message, then print replies for --wait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.dial()
			if err != nil {
				return err
			}
			inbox := make(chan []byte, 16)
			m, err := a.connect(c, comm.ChanHandler(inbox))
			if err != nil {
				return errors.Wrap(err, "failed to connect")
			}
			defer closeDraining(m, inbox)

			if err := m.SendMessage(escape.Decode(args[0])); err != nil {
				return errors.Wrap(err, "failed to send")
			}
			if wait <= 0 {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			return receive(ctx, inbox, 0, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "how long to print replies after sending")
	return cmd
}

func (a *App) listenCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print every received message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.listen(cmd.Context())
			if err != nil {
				return err
			}
			inbox := make(chan []byte, 16)
			m, err := a.connect(c, comm.ChanHandler(inbox))
			if err != nil {
				return errors.Wrap(err, "failed to connect")
			}
			defer closeDraining(m, inbox)
			a.logger.Info("listening", "transport", a.cfg.Transport, "addr", a.cfg.Addr)
			return receive(cmd.Context(), inbox, count, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many messages (0 = run until interrupted)")
	return cmd
}

func (a *App) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Send each input line as a message and print received messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.dial()
			if err != nil {
				return err
			}
			inbox := make(chan []byte, 16)
			m, err := a.connect(c, comm.ChanHandler(inbox))
			if err != nil {
				return errors.Wrap(err, "failed to connect")
			}
			defer closeDraining(m, inbox)

			lines := make(chan string)
			scanErr := make(chan error, 1)
			go func() {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					select {
					case lines <- sc.Text():
					case <-cmd.Context().Done():
						return
					}
				}
				scanErr <- sc.Err()
				close(lines)
			}()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case msg := <-inbox:
					printMessage(out, msg)
				case line, ok := <-lines:
					if !ok {
						return <-scanErr
					}
					if line == "" {
						continue
					}
					if err := m.SendMessage(escape.Decode(line)); err != nil {
						a.logger.Warn("send failed", "error", err)
					}
				}
			}
		},
	}
}

func (a *App) echoCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a UDP echo server that returns every datagram to its sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := netcomm.ListenUDP(a.cfg.Addr, a.netOptions()...)
			echoed := make(chan []byte, 16)
			u.SetBlockHandler(func(b []byte) {
				if err := u.WriteBlock(b); err != nil {
					a.logger.Warn("echo failed", "error", err)
					return
				}
				echoed <- b
			})
			if err := u.Connect(); err != nil {
				return errors.Wrap(err, "failed to listen")
			}
			a.logger.Info("echo server listening", "addr", u.LocalAddr().String())

			done := make(chan struct{})
			defer func() {
				go func() {
					_ = u.Disconnect()
					close(done)
				}()
				for {
					select {
					case <-done:
						return
					case <-echoed:
					}
				}
			}()
			return receive(cmd.Context(), echoed, count, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many datagrams (0 = run until interrupted)")
	return cmd
}

func (a *App) portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialcomm.Ports()
			if err != nil {
				return errors.Wrap(err, "failed to list serial ports")
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show commcat version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "commcat version %s\n", Version)
			return nil
		},
	}
}

// receive prints messages from inbox until ctx is done or count messages
// have been printed. A count of zero means no limit.
func receive(ctx context.Context, inbox <-chan []byte, count int, w io.Writer) error {
	for n := 0; count <= 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-inbox:
			printMessage(w, msg)
		}
	}
	return nil
}
