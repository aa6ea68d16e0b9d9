// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "log/slog"

// defaultStackSize is the per-slot shared-stack size when the option
// is absent or zero.
const defaultStackSize = 1 << 20

// Config holds the fleet options recognized by Init.
type Config struct {
	// Schedulers is the fleet size. 0 or a value above the CPU count
	// clamps to the CPU count.
	Schedulers uint32

	// StackSize is the shared-stack slot size in bytes. 0 means 1 MiB.
	StackSize int

	// DebugLog, when non-nil, receives a structured trace of
	// resume/yield/timer/io events at Debug level.
	DebugLog *slog.Logger

	// DisableExit makes Exit a no-op, for hosts that manage the
	// process lifecycle themselves.
	DisableExit bool
}

// Option configures Init.
type Option func(*Config)

// WithSchedulers sets the fleet size. 0 or a value above NumCPU means
// NumCPU.
func WithSchedulers(n uint32) Option {
	return func(c *Config) { c.Schedulers = n }
}

// WithStackSize sets the shared-stack slot size in bytes.
func WithStackSize(n int) Option {
	return func(c *Config) { c.StackSize = n }
}

// WithDebugLog enables the runtime event trace on l. Passing nil
// enables it on slog.Default.
func WithDebugLog(l *slog.Logger) Option {
	return func(c *Config) {
		if l == nil {
			l = slog.Default()
		}
		c.DebugLog = l
	}
}

// WithoutExit makes Exit a no-op.
func WithoutExit() Option {
	return func(c *Config) { c.DisableExit = true }
}
