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

package mgmd

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/mgmd/log"
)

// Option configures a Server
type Option interface {
	// Apply sets the Option value of a Server.
	Apply(*Server)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Server)

// Apply applies the Server's option
func (f OptionFunc) Apply(s *Server) {
	f(s)
}

// WithLink sets the link used to reach the cluster members instead of
// the one derived from the NATS configuration
func WithLink(link Link) Option {
	return OptionFunc(func(s *Server) {
		if link != nil {
			s.link = link
		}
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider. The global
// provider is used by default.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(s *Server) {
		s.meterProvider = provider
	})
}

// WithLogger overrides the logger of the configuration
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	})
}
