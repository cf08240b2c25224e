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

package transport

import (
	"github.com/tochemey/mgmd/internal/metric"
	"github.com/tochemey/mgmd/log"
)

// Option configures a Transport
type Option interface {
	Apply(*Transport)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Transport)

// Apply applies the option
func (f OptionFunc) Apply(t *Transport) {
	f(t)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	})
}

// WithEventSink sets where unsolicited events are routed
func WithEventSink(sink EventSink) Option {
	return OptionFunc(func(t *Transport) {
		t.sink = sink
	})
}

// WithInstruments sets the metric instruments
func WithInstruments(instruments *metric.Instruments) Option {
	return OptionFunc(func(t *Transport) {
		t.metrics = instruments
	})
}
