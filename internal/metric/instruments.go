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

package metric

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments groups the OpenTelemetry instruments of the management
// server. Every recording method is safe to call on a nil receiver.
//
// Instruments:
//   - mgmd.sessions.active     (Int64UpDownCounter)
//   - mgmd.commands.count      (Int64Counter, attribute: command, result)
//   - mgmd.signals.sent        (Int64Counter, attribute: kind)
//   - mgmd.signals.timeouts    (Int64Counter)
//   - mgmd.nodes.failures      (Int64Counter)
//   - mgmd.events.published    (Int64Counter, attribute: category)
//   - mgmd.listeners.active    (Int64UpDownCounter)
type Instruments struct {
	sessions  metric.Int64UpDownCounter
	commands  metric.Int64Counter
	signals   metric.Int64Counter
	timeouts  metric.Int64Counter
	failures  metric.Int64Counter
	events    metric.Int64Counter
	listeners metric.Int64UpDownCounter
}

// NewInstruments creates the server instruments from the given meter.
// It returns an error if any instrument cannot be created.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var instruments Instruments
	var err error

	if instruments.sessions, err = meter.Int64UpDownCounter(
		"mgmd.sessions.active",
		metric.WithDescription("Number of connected client sessions"),
	); err != nil {
		return nil, err
	}

	if instruments.commands, err = meter.Int64Counter(
		"mgmd.commands.count",
		metric.WithDescription("Total number of dispatched client commands"),
	); err != nil {
		return nil, err
	}

	if instruments.signals, err = meter.Int64Counter(
		"mgmd.signals.sent",
		metric.WithDescription("Total number of signals sent to cluster members"),
	); err != nil {
		return nil, err
	}

	if instruments.timeouts, err = meter.Int64Counter(
		"mgmd.signals.timeouts",
		metric.WithDescription("Total number of signal exchanges that timed out"),
	); err != nil {
		return nil, err
	}

	if instruments.failures, err = meter.Int64Counter(
		"mgmd.nodes.failures",
		metric.WithDescription("Total number of signal exchanges interrupted by a node failure"),
	); err != nil {
		return nil, err
	}

	if instruments.events, err = meter.Int64Counter(
		"mgmd.events.published",
		metric.WithDescription("Total number of cluster events published to listeners"),
	); err != nil {
		return nil, err
	}

	if instruments.listeners, err = meter.Int64UpDownCounter(
		"mgmd.listeners.active",
		metric.WithDescription("Number of subscribed event listeners"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// SessionOpened records a new client session
func (x *Instruments) SessionOpened(ctx context.Context) {
	if x == nil {
		return
	}
	x.sessions.Add(ctx, 1)
}

// SessionClosed records the end of a client session
func (x *Instruments) SessionClosed(ctx context.Context) {
	if x == nil {
		return
	}
	x.sessions.Add(ctx, -1)
}

// CommandDispatched records a dispatched command and its result code text
func (x *Instruments) CommandDispatched(ctx context.Context, command, result string) {
	if x == nil {
		return
	}
	x.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("result", result),
	))
}

// SignalSent records a signal handed to the member link
func (x *Instruments) SignalSent(ctx context.Context, kind string) {
	if x == nil {
		return
	}
	x.signals.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// SignalTimedOut records a signal exchange that got no reply in time
func (x *Instruments) SignalTimedOut(ctx context.Context) {
	if x == nil {
		return
	}
	x.timeouts.Add(ctx, 1)
}

// NodeFailed records a signal exchange cut short by a node failure
func (x *Instruments) NodeFailed(ctx context.Context) {
	if x == nil {
		return
	}
	x.failures.Add(ctx, 1)
}

// EventPublished records a published event
func (x *Instruments) EventPublished(ctx context.Context, category string) {
	if x == nil {
		return
	}
	x.events.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// ListenersChanged records a change in the number of listeners
func (x *Instruments) ListenersChanged(ctx context.Context, delta int64) {
	if x == nil || delta == 0 {
		return
	}
	x.listeners.Add(ctx, delta)
}
