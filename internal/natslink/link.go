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

package natslink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/internal/ticker"
	"github.com/tochemey/mgmd/internal/transport"
	"github.com/tochemey/mgmd/log"
)

var (
	// ErrNotStarted is returned when the link is used before Start
	ErrNotStarted = errors.New("natslink: link is not started")
	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("natslink: link is already started")
)

// NodeSubject returns the subject a member with the given id listens on
func NodeSubject(subject string, node config.NodeID) string {
	return fmt.Sprintf("%s.node.%d", subject, node)
}

// InboundSubject returns the subject members publish to
func InboundSubject(subject string) string {
	return subject + ".mgm"
}

// Link carries signals between the management server and the cluster
// members over NATS. A member is considered connected from its first
// heartbeat until it stays silent for longer than the heartbeat timeout.
type Link struct {
	config config.NATS
	name   string
	codec  *signal.Codec
	logger log.Logger

	// lifecycle serializes Start and Stop; mu only guards the connection
	// so that Send never waits on a stopping link
	lifecycle    sync.Mutex
	mu           sync.Mutex
	started      *atomic.Bool
	connection   *nats.Conn
	subscription *nats.Subscription
	receiver     transport.Receiver
	ticker       *ticker.Ticker
	stopCh       chan struct{}
	wg           sync.WaitGroup

	aliveMu sync.Mutex
	alive   map[config.NodeID]time.Time
}

var _ transport.Link = (*Link)(nil)

// New creates a Link with the given NATS configuration
func New(cfg config.NATS, opts ...Option) *Link {
	link := &Link{
		config:  cfg,
		name:    "mgmd",
		codec:   signal.NewCodec(),
		logger:  log.DefaultLogger,
		started: atomic.NewBool(false),
		alive:   make(map[config.NodeID]time.Time),
	}

	for _, opt := range opts {
		opt.Apply(link)
	}
	return link
}

// Start connects to the NATS server and begins delivering member
// signals and liveness changes to the receiver
func (l *Link) Start(ctx context.Context, receiver transport.Receiver) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.started.Load() {
		return ErrAlreadyStarted
	}

	opts := nats.GetDefaultOptions()
	opts.Url = l.config.URL
	opts.Name = l.name
	opts.ReconnectWait = 2 * time.Second
	opts.MaxReconnect = -1

	var connection *nats.Conn

	// try a maximum of five times, with an initial delay of 100 ms
	// and a maximum delay of opts.ReconnectWait
	const maxRetries = 5
	retrier := retry.NewRetrier(maxRetries, 100*time.Millisecond, opts.ReconnectWait)
	err := retrier.Run(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		connection, err = opts.Connect()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to connect to NATS server %s: %w", l.config.URL, err)
	}

	l.receiver = receiver
	subscription, err := connection.Subscribe(InboundSubject(l.config.Subject), l.handle)
	if err != nil {
		connection.Close()
		return err
	}

	l.mu.Lock()
	l.connection = connection
	l.subscription = subscription
	l.mu.Unlock()

	l.stopCh = make(chan struct{})
	l.ticker = ticker.New(l.config.HeartbeatInterval)
	l.ticker.Start()

	l.wg.Add(1)
	go l.sweepLoop(l.ticker, l.stopCh)

	l.started.Store(true)
	l.logger.Infof("member link connected to %s on subject %s", l.config.URL, l.config.Subject)
	return nil
}

// Stop disconnects from the NATS server. Every member is considered
// disconnected afterwards.
func (l *Link) Stop() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if !l.started.Load() {
		return nil
	}
	l.started.Store(false)

	// the sweeper may be inside the receiver, which can call Send
	l.ticker.Stop()
	close(l.stopCh)
	l.wg.Wait()

	l.aliveMu.Lock()
	clear(l.alive)
	l.aliveMu.Unlock()

	l.mu.Lock()
	connection, subscription := l.connection, l.subscription
	l.connection, l.subscription = nil, nil
	l.mu.Unlock()
	defer connection.Close()

	if subscription.IsValid() {
		if err := subscription.Unsubscribe(); err != nil {
			return err
		}
	}
	return connection.Flush()
}

// Send publishes the signal on the subject of the given member
func (l *Link) Send(ctx context.Context, node config.NodeID, sig *signal.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.started.Load() {
		return ErrNotStarted
	}

	data, err := l.codec.Encode(sig)
	if err != nil {
		return err
	}

	l.mu.Lock()
	connection := l.connection
	l.mu.Unlock()
	if connection == nil {
		return ErrNotStarted
	}
	return connection.Publish(NodeSubject(l.config.Subject, node), data)
}

// IsConnected reports whether a heartbeat from the member is current
func (l *Link) IsConnected(node config.NodeID) bool {
	l.aliveMu.Lock()
	defer l.aliveMu.Unlock()
	_, ok := l.alive[node]
	return ok
}

// Connected returns the ids of the connected members
func (l *Link) Connected() []config.NodeID {
	l.aliveMu.Lock()
	defer l.aliveMu.Unlock()
	nodes := make([]config.NodeID, 0, len(l.alive))
	for node := range l.alive {
		nodes = append(nodes, node)
	}
	return nodes
}

func (l *Link) handle(msg *nats.Msg) {
	sig, err := l.codec.Decode(msg.Data)
	if err != nil {
		l.logger.Warnf("dropping undecodable message on %s: %v", msg.Subject, err)
		return
	}
	if sig.Node == 0 {
		l.logger.Warnf("dropping %s without a sender", sig.Kind)
		return
	}

	l.markAlive(sig.Node)
	if sig.Kind != signal.Heartbeat {
		l.receiver.OnMessageReceived(sig)
	}
}

func (l *Link) markAlive(node config.NodeID) {
	l.aliveMu.Lock()
	_, known := l.alive[node]
	l.alive[node] = time.Now()
	l.aliveMu.Unlock()

	if !known {
		l.receiver.OnNodeStatusChanged(node, true)
	}
}

func (l *Link) sweepLoop(t *ticker.Ticker, stopCh <-chan struct{}) {
	defer l.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case now := <-t.Ticks:
			l.sweep(now)
		}
	}
}

func (l *Link) sweep(now time.Time) {
	var silent []config.NodeID
	l.aliveMu.Lock()
	for node, seen := range l.alive {
		if now.Sub(seen) > l.config.HeartbeatTimeout {
			delete(l.alive, node)
			silent = append(silent, node)
		}
	}
	l.aliveMu.Unlock()

	for _, node := range silent {
		l.logger.Warnf("node id=%d missed its heartbeats", node)
		l.receiver.OnNodeStatusChanged(node, false)
	}
}
