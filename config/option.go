// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"time"

	"github.com/tochemey/mgmd/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(config *Config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(config *Config)

// Apply applies the option
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(config *Config) {
		if logger != nil {
			config.Logger = logger
		}
	})
}

// WithSignalTimeout sets how long a command waits for a member reply.
func WithSignalTimeout(timeout time.Duration) Option {
	return OptionFunc(func(config *Config) {
		config.SignalTimeout = timeout
	})
}

// WithListenerWriteTimeout sets the per-write deadline of event listeners.
func WithListenerWriteTimeout(timeout time.Duration) Option {
	return OptionFunc(func(config *Config) {
		config.ListenerWriteTimeout = timeout
	})
}

// WithPingInterval sets the keep-alive interval of event listeners.
func WithPingInterval(interval time.Duration) Option {
	return OptionFunc(func(config *Config) {
		config.PingInterval = interval
	})
}

// WithMaxSessions bounds the client sessions served at the same time
func WithMaxSessions(limit int64) Option {
	return OptionFunc(func(config *Config) {
		config.MaxSessions = limit
	})
}

// WithMinClientVersion sets the lowest client version accepted during
// node id negotiation.
func WithMinClientVersion(version uint32) Option {
	return OptionFunc(func(config *Config) {
		config.MinClientVersion = version
	})
}

// WithNATS sets the NATS server url and root subject of the member link.
func WithNATS(url, subject string) Option {
	return OptionFunc(func(config *Config) {
		config.NATS.URL = url
		if subject != "" {
			config.NATS.Subject = subject
		}
	})
}

// WithHeartbeat sets the liveness check interval and the silence
// threshold after which a member is considered down.
func WithHeartbeat(interval, timeout time.Duration) Option {
	return OptionFunc(func(config *Config) {
		config.NATS.HeartbeatInterval = interval
		config.NATS.HeartbeatTimeout = timeout
	})
}
