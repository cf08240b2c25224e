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

package eventstream

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/internal/metric"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/internal/ticker"
	"github.com/tochemey/mgmd/internal/transport"
	"github.com/tochemey/mgmd/log"
)

const (
	defaultWriteTimeout = 100 * time.Millisecond
	defaultPingInterval = 10 * time.Second
)

// Signaller sends fire-and-forget signals to cluster members
type Signaller interface {
	Send(ctx context.Context, node config.NodeID, sig *signal.Signal, unconditional bool) error
}

// Members lists the configured cluster members
type Members interface {
	IDsOfType(nodeType config.NodeType) []config.NodeID
}

// Service fans cluster events out to subscribed listeners and keeps the
// members informed of the aggregated threshold of all listeners.
type Service struct {
	mu           sync.Mutex
	listeners    []*Listener
	clusterLevel signal.LogLevel

	signaller    Signaller
	members      Members
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       log.Logger
	metrics      *metric.Instruments

	ctx     context.Context
	cancel  context.CancelFunc
	ticker  *ticker.Ticker
	wg      sync.WaitGroup
	running bool
}

var _ transport.EventSink = (*Service)(nil)

// New creates a Service that pushes threshold changes through the
// signaller to every data node listed by members
func New(signaller Signaller, members Members, opts ...Option) *Service {
	s := &Service{
		signaller:    signaller,
		members:      members,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		logger:       log.DiscardLogger,
		ctx:          context.Background(),
	}

	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

// Start begins sending keep-alive pings to listeners
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.ctx = context.WithoutCancel(ctx)
	loopCtx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.ticker = ticker.New(s.pingInterval)
	s.ticker.Start()
	s.running = true

	s.wg.Add(1)
	go s.pingLoop(loopCtx, s.ticker)
}

// Stop stops the keep-alive pings. Listeners stay subscribed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	tick := s.ticker
	s.mu.Unlock()

	tick.Stop()
	s.wg.Wait()
}

// Subscribe adds a listener that receives every event its filter admits
func (s *Service) Subscribe(conn Conn, filter signal.LogLevel, parsable bool) *Listener {
	listener := newListener(conn, filter, parsable)

	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	changed, level := s.recompute()
	ctx := s.ctx
	s.mu.Unlock()

	s.metrics.ListenersChanged(ctx, 1)
	s.logger.Infof("listener %s subscribed from %s with filter %s", listener.id, conn.RemoteAddr(), filter)
	if changed {
		s.push(ctx, level)
	}
	return listener
}

// Unsubscribe removes and closes the given listener
func (s *Service) Unsubscribe(id string) bool {
	s.mu.Lock()
	index := slices.IndexFunc(s.listeners, func(l *Listener) bool { return l.id == id })
	if index < 0 {
		s.mu.Unlock()
		return false
	}
	listener := s.listeners[index]
	s.listeners = slices.Delete(s.listeners, index, index+1)
	changed, level := s.recompute()
	ctx := s.ctx
	s.mu.Unlock()

	_ = listener.conn.Close()
	s.metrics.ListenersChanged(ctx, -1)
	if changed {
		s.push(ctx, level)
	}
	return true
}

// UnsubscribeAll closes and removes every listener
func (s *Service) UnsubscribeAll() {
	s.mu.Lock()
	listeners := s.listeners
	s.listeners = nil
	changed, level := s.recompute()
	ctx := s.ctx
	s.mu.Unlock()

	for _, listener := range listeners {
		_ = listener.conn.Close()
	}
	s.metrics.ListenersChanged(ctx, -int64(len(listeners)))
	if changed {
		s.push(ctx, level)
	}
}

// Publish writes the event to every listener whose filter admits it.
// Listeners that fail to take the event in time are dropped.
func (s *Service) Publish(event *signal.Signal) {
	if event == nil {
		return
	}

	s.mu.Lock()
	var failed []*Listener
	for _, listener := range s.listeners {
		if !listener.filter.Admits(event.Category, event.Severity) {
			continue
		}
		if err := listener.write(listener.format(event), s.writeTimeout); err != nil {
			s.logger.Warnf("dropping listener %s: %v", listener.id, err)
			failed = append(failed, listener)
		}
	}
	changed, level := s.drop(failed)
	ctx := s.ctx
	s.mu.Unlock()

	s.metrics.EventPublished(ctx, event.Category.String())
	s.closeDropped(ctx, failed)
	if changed {
		s.push(ctx, level)
	}
}

// Deliver publishes an event received from a member
func (s *Service) Deliver(sig *signal.Signal) {
	if sig == nil || sig.Kind != signal.EventReport {
		return
	}
	s.Publish(sig)
}

// Ping writes a keep-alive line to every listener and drops the ones
// that cannot take it
func (s *Service) Ping() {
	s.mu.Lock()
	var failed []*Listener
	for _, listener := range s.listeners {
		if err := listener.write(pingLine, s.writeTimeout); err != nil {
			failed = append(failed, listener)
		}
	}
	changed, level := s.drop(failed)
	ctx := s.ctx
	s.mu.Unlock()

	s.closeDropped(ctx, failed)
	if changed {
		s.push(ctx, level)
	}
}

// ClusterLogLevel returns the aggregated threshold of all listeners
func (s *Service) ClusterLogLevel() signal.LogLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clusterLevel
}

// ListenerCount returns the number of subscribed listeners
func (s *Service) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// drop removes the failed listeners once the scan is over.
// It must be called with the lock held.
func (s *Service) drop(failed []*Listener) (bool, signal.LogLevel) {
	if len(failed) == 0 {
		return false, s.clusterLevel
	}
	s.listeners = slices.DeleteFunc(s.listeners, func(l *Listener) bool {
		return slices.Contains(failed, l)
	})
	return s.recompute()
}

func (s *Service) closeDropped(ctx context.Context, failed []*Listener) {
	for _, listener := range failed {
		_ = listener.conn.Close()
	}
	s.metrics.ListenersChanged(ctx, -int64(len(failed)))
}

// recompute rebuilds the cluster threshold from the current listeners
// and reports whether it changed. It must be called with the lock held.
func (s *Service) recompute() (bool, signal.LogLevel) {
	var level signal.LogLevel
	for _, listener := range s.listeners {
		level = level.Widen(listener.filter)
	}
	changed := level != s.clusterLevel
	s.clusterLevel = level
	return changed, level
}

// push sends the threshold to every data node. It must not be called
// with the lock held.
func (s *Service) push(ctx context.Context, level signal.LogLevel) {
	for _, node := range s.members.IDsOfType(config.NodeTypeDB) {
		sig := &signal.Signal{Kind: signal.ClusterLogLevelOrd, LogLevel: level}
		if err := s.signaller.Send(ctx, node, sig, true); err != nil {
			s.logger.Debugf("failed to push cluster log level to node id=%d: %v", node, err)
		}
	}
}

func (s *Service) pingLoop(ctx context.Context, tick *ticker.Ticker) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.Ticks:
			s.Ping()
		}
	}
}
