// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the commcat command tree.
package cli

import (
	"log/slog"
	"strings"

	"code.hybscloud.com/comm/internal/config"
	"code.hybscloud.com/comm/serialcomm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Version is the commcat version reported by the version command.
const Version = "0.1.0"

// App holds the flags and the state shared by all commands.
type App struct {
	// Global flags
	cfgFile   string
	transport string
	addr      string
	portName  string
	baud      int
	framing   string
	logLevel  string

	// Shared state set during PersistentPreRunE
	cfg    *config.Config
	logger *slog.Logger

	// SerialOpener opens serial ports; tests replace it with a fake.
	SerialOpener serialcomm.Opener
}

// NewApp returns an App with no configuration loaded yet.
func NewApp() *App {
	return &App{}
}

// Command builds the root command and its subcommands.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "commcat",
		Short: "commcat - send and receive framed messages over UDP, TCP or a serial port",
		Long: `commcat exchanges discrete messages with devices and peers.
Messages are COBS framed on stream transports (serial, TCP) and sent one per
datagram on UDP, unless --framing says otherwise. Message arguments and input
lines may contain hex escapes such as \0A; received messages are printed with
the same escapes for non-printable bytes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.commcat/config.yaml)")
	pf.StringVar(&a.transport, "transport", "", "transport: udp, tcp, serial")
	pf.StringVar(&a.addr, "addr", "", "network address host:port")
	pf.StringVar(&a.portName, "port-name", "", "serial port name")
	pf.IntVar(&a.baud, "baud", 0, "serial baud rate")
	pf.StringVar(&a.framing, "framing", "", "framing: auto, cobs, transparent")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		a.sendCmd(),
		a.listenCmd(),
		a.chatCmd(),
		a.echoCmd(),
		a.portsCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	// Load configuration
	path := a.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil && a.cfgFile == "" {
		// An unreadable default file falls back to the defaults.
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	// Override config with flags
	if a.transport != "" {
		cfg.Transport = a.transport
	}
	if a.addr != "" {
		cfg.Addr = a.addr
	}
	if a.portName != "" {
		cfg.Serial.PortName = a.portName
	}
	if a.baud > 0 {
		cfg.Serial.BaudRate = a.baud
	}
	if a.framing != "" {
		cfg.Framing = a.framing
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return errors.Errorf("unknown log level %q", cfg.LogLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.cfg = cfg
	return nil
}
