package replcraft

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	logger            zerolog.Logger
	heartbeatInterval time.Duration
	retryDelay        time.Duration
	dialTimeout       time.Duration
}

func clientDefaults() clientOptions {
	return clientOptions{
		logger:            zerolog.Nop(),
		heartbeatInterval: 10 * time.Second,
		retryDelay:        500 * time.Millisecond,
		dialTimeout:       10 * time.Second,
	}
}

// WithLogger sets the logger for client lifecycle and debug output.
// By default the client logs nothing.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHeartbeatInterval sets the keep-alive interval. Default 10s.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *clientOptions) {
		o.heartbeatInterval = d
	}
}

// WithRetryDelay sets the delay between an "out of fuel" failure and the
// request entering the retry queue. Default 500ms, leaving time for the fuel
// notification to reach application code before the resubmission.
func WithRetryDelay(d time.Duration) Option {
	return func(o *clientOptions) {
		o.retryDelay = d
	}
}

// WithDialTimeout sets the WebSocket handshake timeout. Default 10s.
func WithDialTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.dialTimeout = d
	}
}
