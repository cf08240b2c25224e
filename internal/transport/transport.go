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
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/metric"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/log"
)

// connectionSeverity is the severity of the synthesized node
// connect and disconnect events
const connectionSeverity = 8

// State is the state of the pending signal exchange
type State int

const (
	StateIdle State = iota
	StateAwaiting
	StateTimedOut
	StateNodeFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaiting:
		return "Awaiting"
	case StateTimedOut:
		return "TimedOut"
	case StateNodeFailed:
		return "NodeFailed"
	default:
		return "Unknown"
	}
}

type pendingCall struct {
	node   config.NodeID
	expect []signal.Kind
	reply  *signal.Signal
	err    error
	done   bool
}

func (c *pendingCall) matches(sig *signal.Signal) bool {
	return !c.done && c.node == sig.Node && slices.Contains(c.expect, sig.Kind)
}

// Transport sends signals to cluster members and correlates replies.
//
// At most one exchange awaiting a reply is outstanding at any time for a
// Transport; concurrent callers of SendAndWait queue behind it.
type Transport struct {
	mu      sync.Mutex
	cond    *sync.Cond
	link    Link
	sink    EventSink
	state   State
	pending *pendingCall
	logger  log.Logger
	metrics *metric.Instruments
}

var _ Receiver = (*Transport)(nil)

// New creates a Transport over the given link
func New(link Link, opts ...Option) *Transport {
	t := &Transport{
		link:   link,
		state:  StateIdle,
		logger: log.DiscardLogger,
	}
	t.cond = sync.NewCond(&t.mu)

	for _, opt := range opts {
		opt.Apply(t)
	}
	return t
}

// SetEventSink sets where unsolicited events are routed
func (t *Transport) SetEventSink(sink EventSink) {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
}

// State returns the state of the current or last exchange
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsConnected reports whether the link currently reaches the given member
func (t *Transport) IsConnected(node config.NodeID) bool {
	return t.link.IsConnected(node)
}

// Send hands a signal to the given member without waiting for a reply.
// It fails with ErrNoContact when the member is not reachable, unless
// unconditional is set in which case the link is tried regardless.
func (t *Transport) Send(ctx context.Context, node config.NodeID, sig *signal.Signal, unconditional bool) error {
	if sig == nil {
		return fmt.Errorf("nil signal: %w", errors.ErrInternal)
	}

	sig.Node = node
	if !unconditional && !t.link.IsConnected(node) {
		return fmt.Errorf("node id=%d: %w", node, errors.ErrNoContact)
	}

	if err := t.link.Send(ctx, node, sig); err != nil {
		return fmt.Errorf("node id=%d: %w: %w", node, errors.ErrNoContact, err)
	}

	t.metrics.SignalSent(ctx, sig.Kind.String())
	t.logger.Debugf("sent %s to node id=%d", sig.Kind, node)
	return nil
}

// SendAndWait sends a signal to the given member and blocks until a
// reply of one of the expected kinds arrives from that member, the
// member fails, the context is done or the timeout elapses. Time spent
// waiting behind another exchange counts against the same timeout.
func (t *Transport) SendAndWait(ctx context.Context, node config.NodeID, sig *signal.Signal, expect []signal.Kind, timeout time.Duration) (*signal.Signal, error) {
	if timeout <= 0 {
		return nil, errors.ErrInvalidTimeout
	}

	var expired bool
	timer := time.AfterFunc(timeout, func() {
		t.mu.Lock()
		expired = true
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer timer.Stop()

	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stop()

	t.mu.Lock()
	for t.pending != nil && !expired && ctx.Err() == nil {
		t.cond.Wait()
	}

	switch {
	case ctx.Err() != nil:
		t.mu.Unlock()
		return nil, ctx.Err()
	case expired:
		t.mu.Unlock()
		t.metrics.SignalTimedOut(ctx)
		return nil, fmt.Errorf("node id=%d: waiting for a free slot: %w", node, errors.ErrTimeout)
	}

	call := &pendingCall{node: node, expect: expect}
	t.pending = call
	t.state = StateAwaiting
	t.mu.Unlock()

	// the call is installed first so a fast reply cannot be missed
	if err := t.Send(ctx, node, sig, false); err != nil {
		t.mu.Lock()
		t.finish(StateIdle)
		t.mu.Unlock()
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for !call.done && !expired && ctx.Err() == nil {
		t.cond.Wait()
	}

	switch {
	case call.done && call.err != nil:
		t.finish(StateNodeFailed)
		t.metrics.NodeFailed(ctx)
		return nil, call.err
	case call.done:
		t.finish(StateIdle)
		return call.reply, nil
	case expired:
		t.finish(StateTimedOut)
		t.metrics.SignalTimedOut(ctx)
		t.logger.Warnf("no reply to %s from node id=%d within %s", sig.Kind, node, timeout)
		return nil, fmt.Errorf("node id=%d: %w", node, errors.ErrTimeout)
	default:
		t.finish(StateIdle)
		return nil, ctx.Err()
	}
}

// OnMessageReceived is called by the link for every signal coming from a
// member. A signal completing the pending exchange wakes its waiter;
// events go to the event sink; anything else is stale and dropped.
func (t *Transport) OnMessageReceived(sig *signal.Signal) {
	if sig == nil {
		return
	}

	t.mu.Lock()
	if call := t.pending; call != nil && call.matches(sig) {
		call.reply = sig
		call.done = true
		t.cond.Broadcast()
		t.mu.Unlock()
		return
	}
	sink := t.sink
	t.mu.Unlock()

	switch sig.Kind {
	case signal.EventReport:
		if sink != nil {
			sink.Deliver(sig)
		}
	case signal.Heartbeat:
	default:
		t.logger.Debugf("dropping stale %s from node id=%d", sig.Kind, sig.Node)
	}
}

// OnNodeStatusChanged is called by the link when a member connects or
// disconnects. A pending exchange with a member that went down fails
// with ErrNodeFailed.
func (t *Transport) OnNodeStatusChanged(node config.NodeID, alive bool) {
	t.mu.Lock()
	if call := t.pending; !alive && call != nil && !call.done && call.node == node {
		call.err = fmt.Errorf("node id=%d: %w", node, errors.ErrNodeFailed)
		call.done = true
		t.cond.Broadcast()
	}
	sink := t.sink
	t.mu.Unlock()

	status := "Disconnected"
	if alive {
		status = "Connected"
	}
	t.logger.Infof("node id=%d %s", node, status)

	if sink != nil {
		sink.Deliver(signal.NewEvent(node, signal.CategoryConnection, connectionSeverity, fmt.Sprintf("Node %d %s", node, status)))
	}
}

// finish must be called with the lock held
func (t *Transport) finish(state State) {
	t.pending = nil
	t.state = state
	t.cond.Broadcast()
}
