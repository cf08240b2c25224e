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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/log"
)

const slack = 200 * time.Millisecond

type fakeLink struct {
	mu        sync.Mutex
	connected map[config.NodeID]bool
	sent      []*signal.Signal
	sendErr   error
	onSend    func(node config.NodeID, sig *signal.Signal)
}

func newFakeLink(nodes ...config.NodeID) *fakeLink {
	link := &fakeLink{connected: make(map[config.NodeID]bool)}
	for _, node := range nodes {
		link.connected[node] = true
	}
	return link
}

func (l *fakeLink) Send(_ context.Context, node config.NodeID, sig *signal.Signal) error {
	l.mu.Lock()
	if l.sendErr != nil {
		l.mu.Unlock()
		return l.sendErr
	}
	l.sent = append(l.sent, sig)
	onSend := l.onSend
	l.mu.Unlock()

	if onSend != nil {
		onSend(node, sig)
	}
	return nil
}

func (l *fakeLink) IsConnected(node config.NodeID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected[node]
}

func (l *fakeLink) Sent() []*signal.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*signal.Signal(nil), l.sent...)
}

type fakeSink struct {
	mu     sync.Mutex
	events []*signal.Signal
}

func (s *fakeSink) Deliver(sig *signal.Signal) {
	s.mu.Lock()
	s.events = append(s.events, sig)
	s.mu.Unlock()
}

func (s *fakeSink) Events() []*signal.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*signal.Signal(nil), s.events...)
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	link := newFakeLink(2)
	transport := New(link, WithLogger(log.DiscardLogger))

	require.NoError(t, transport.Send(ctx, 2, signal.New(signal.SetLogLevelOrd, 0), false))

	err := transport.Send(ctx, 3, signal.New(signal.SetLogLevelOrd, 0), false)
	require.ErrorIs(t, err, errors.ErrNoContact)

	require.NoError(t, transport.Send(ctx, 3, signal.New(signal.ClusterLogLevelOrd, 0), true))

	sent := link.Sent()
	require.Len(t, sent, 2)
	assert.EqualValues(t, 3, sent[1].Node)

	link.sendErr = assert.AnError
	err = transport.Send(ctx, 2, signal.New(signal.SetLogLevelOrd, 0), true)
	require.ErrorIs(t, err, errors.ErrNoContact)

	require.ErrorIs(t, transport.Send(ctx, 2, nil, true), errors.ErrInternal)
}

func TestSendAndWait(t *testing.T) {
	t.Run("With reply", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		link := newFakeLink(2)
		transport := New(link)
		link.onSend = func(node config.NodeID, _ *signal.Signal) {
			go transport.OnMessageReceived(signal.New(signal.StopConf, node))
		}

		start := time.Now()
		reply, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf, signal.StopRef}, time.Second)
		require.NoError(t, err)
		require.NotNil(t, reply)
		assert.Equal(t, signal.StopConf, reply.Kind)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, StateIdle, transport.State())
	})

	t.Run("With refusal reply", func(t *testing.T) {
		link := newFakeLink(2)
		transport := New(link)
		link.onSend = func(node config.NodeID, _ *signal.Signal) {
			go transport.OnMessageReceived(&signal.Signal{Kind: signal.StopRef, Node: node, Code: errors.CodeNodeShutdownInProgress})
		}

		reply, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf, signal.StopRef}, time.Second)
		require.NoError(t, err)
		require.ErrorIs(t, reply.Err(), errors.ErrNodeShutdownInProgress)
	})

	t.Run("With node failure", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		link := newFakeLink(2)
		sink := new(fakeSink)
		transport := New(link, WithEventSink(sink))
		link.onSend = func(node config.NodeID, _ *signal.Signal) {
			go func() {
				time.Sleep(20 * time.Millisecond)
				transport.OnNodeStatusChanged(node, false)
			}()
		}

		timeout := time.Second
		start := time.Now()
		_, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, timeout)
		require.ErrorIs(t, err, errors.ErrNodeFailed)
		assert.Less(t, time.Since(start), timeout+slack)
		assert.Equal(t, StateNodeFailed, transport.State())

		require.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, 10*time.Millisecond)
		event := sink.Events()[0]
		assert.Equal(t, signal.CategoryConnection, event.Category)
		assert.Equal(t, "Node 2 Disconnected", event.Text)
	})

	t.Run("With silence", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		transport := New(newFakeLink(2))

		timeout := 100 * time.Millisecond
		start := time.Now()
		_, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, timeout)
		elapsed := time.Since(start)
		require.ErrorIs(t, err, errors.ErrTimeout)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.Less(t, elapsed, timeout+slack)
		assert.Equal(t, StateTimedOut, transport.State())
	})

	t.Run("With unreachable node", func(t *testing.T) {
		transport := New(newFakeLink())
		_, err := transport.SendAndWait(context.Background(), 3, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, time.Second)
		require.ErrorIs(t, err, errors.ErrNoContact)
		assert.Equal(t, StateIdle, transport.State())
	})

	t.Run("With invalid timeout", func(t *testing.T) {
		transport := New(newFakeLink(2))
		_, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, 0)
		require.ErrorIs(t, err, errors.ErrInvalidTimeout)
	})

	t.Run("With context canceled", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		transport := New(newFakeLink(2))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := transport.SendAndWait(ctx, 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, time.Second)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, StateIdle, transport.State())
	})

	t.Run("With stale replies", func(t *testing.T) {
		link := newFakeLink(2, 3)
		sink := new(fakeSink)
		transport := New(link, WithEventSink(sink))
		link.onSend = func(node config.NodeID, _ *signal.Signal) {
			go func() {
				// wrong node then wrong kind then an event
				transport.OnMessageReceived(signal.New(signal.StopConf, 3))
				transport.OnMessageReceived(signal.New(signal.StartConf, node))
				transport.OnMessageReceived(signal.NewEvent(node, signal.CategoryStartup, 7, "starting"))
			}()
		}

		_, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, 100*time.Millisecond)
		require.ErrorIs(t, err, errors.ErrTimeout)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "starting", events[0].Text)

		// a late reply does not leak into the next exchange
		link.onSend = nil
		transport.OnMessageReceived(signal.New(signal.StopConf, 2))
		_, err = transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, 50*time.Millisecond)
		require.ErrorIs(t, err, errors.ErrTimeout)
	})
}

func TestSingleOutstandingCall(t *testing.T) {
	t.Run("With concurrent callers", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		link := newFakeLink(2, 3, 4, 5)
		transport := New(link)

		inFlight := atomic.NewInt32(0)
		overlap := atomic.NewBool(false)
		link.onSend = func(node config.NodeID, _ *signal.Signal) {
			if inFlight.Inc() > 1 {
				overlap.Store(true)
			}
			go func() {
				time.Sleep(20 * time.Millisecond)
				inFlight.Dec()
				transport.OnMessageReceived(signal.New(signal.StopConf, node))
			}()
		}

		eg := new(errgroup.Group)
		for _, node := range []config.NodeID{2, 3, 4, 5} {
			eg.Go(func() error {
				reply, err := transport.SendAndWait(context.Background(), node, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, 2*time.Second)
				if err != nil {
					return err
				}
				if reply.Node != node {
					return fmt.Errorf("node id=%d got reply from %d", node, reply.Node)
				}
				return nil
			})
		}
		require.NoError(t, eg.Wait())
		assert.False(t, overlap.Load())
		assert.Len(t, link.Sent(), 4)
	})

	t.Run("With queued caller timing out", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		transport := New(newFakeLink(2, 3))

		done := make(chan error, 1)
		go func() {
			_, err := transport.SendAndWait(context.Background(), 2, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, 500*time.Millisecond)
			done <- err
		}()
		require.Eventually(t, func() bool { return transport.State() == StateAwaiting }, time.Second, 5*time.Millisecond)

		timeout := 100 * time.Millisecond
		start := time.Now()
		_, err := transport.SendAndWait(context.Background(), 3, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, timeout)
		require.ErrorIs(t, err, errors.ErrTimeout)
		assert.Less(t, time.Since(start), timeout+slack)

		require.ErrorIs(t, <-done, errors.ErrTimeout)
	})
}

func TestOnNodeStatusChanged(t *testing.T) {
	sink := new(fakeSink)
	transport := New(newFakeLink())
	transport.SetEventSink(sink)

	transport.OnNodeStatusChanged(4, true)
	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Node 4 Connected", events[0].Text)
	assert.EqualValues(t, 4, events[0].Node)
	assert.Equal(t, StateIdle, transport.State())
	assert.Equal(t, "Awaiting", StateAwaiting.String())
}
