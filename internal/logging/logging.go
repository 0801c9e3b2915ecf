// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging holds the structured logger contract shared by the comm packages.
package logging

import "log/slog"

// Logger is the interface for structured logging.
// It is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Default returns the process-wide slog logger.
func Default() Logger { return slog.Default() }

// Discard returns a logger that drops every record.
func Discard() Logger { return slog.New(slog.DiscardHandler) }
