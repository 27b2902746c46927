package engine

import (
	"io"
	"log/slog"
)

// config is shared by Coordinator, Dispatcher and Runner.
type config struct {
	maxCycles int
	recorder  Recorder
	logger    *slog.Logger
	clock     Sequencer
	runID     string
}

// Option configures a Coordinator, a Dispatcher or a Runner.
type Option func(*config)

// WithMaxCycles stops a coordinator cleanly after n full cycles.
// Zero (the default) runs until cancelled.
func WithMaxCycles(n int) Option {
	return func(c *config) {
		c.maxCycles = n
	}
}

// WithRecorder sends every step event to r.
func WithRecorder(r Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithClock sets the sequencer step events are stamped from.
func WithClock(s Sequencer) Option {
	return func(c *config) {
		c.clock = s
	}
}

// WithRunID sets the run id carried by step events and errors.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}

func newConfig(opts []Option) config {
	c := config{}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = NewClock()
	}
	return c
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
