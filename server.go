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

// Package mgmd is the cluster management server. A Server allocates node
// ids to joining members, relays administrative commands to them as
// signals and fans cluster events out to subscribed monitors.
package mgmd

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/chain"
	"github.com/tochemey/mgmd/internal/eventstream"
	imetric "github.com/tochemey/mgmd/internal/metric"
	"github.com/tochemey/mgmd/internal/natslink"
	"github.com/tochemey/mgmd/internal/registry"
	"github.com/tochemey/mgmd/internal/session"
	"github.com/tochemey/mgmd/internal/tcp"
	"github.com/tochemey/mgmd/internal/transport"
	"github.com/tochemey/mgmd/internal/xsync"
	"github.com/tochemey/mgmd/log"
)

// Server owns the node registry, the signal transport and the event
// fan-out service, and serves client sessions over TCP.
type Server struct {
	config        *config.Config
	logger        log.Logger
	link          Link
	meterProvider metric.MeterProvider

	started  *atomic.Bool
	stopping *atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	registry  *registry.Registry
	transport *transport.Transport
	events    *eventstream.Service
	listener  *tcp.Server
	deps      *session.Dependencies
	sessions  *xsync.Map[string, *session.Session]
	group     *errgroup.Group
}

// New creates a Server for the given configuration. The configuration
// is validated by Start.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		logger:   cfg.Logger,
		started:  atomic.NewBool(false),
		stopping: atomic.NewBool(false),
		sessions: xsync.NewMap[string, *session.Session](),
	}

	for _, opt := range opts {
		opt.Apply(s)
	}

	if s.logger == nil {
		s.logger = log.DefaultLogger
	}
	if s.link == nil {
		s.link = standaloneLink{}
		if cfg.NATS.URL != "" {
			s.link = natslink.New(cfg.NATS, natslink.WithLogger(s.logger), natslink.WithName("mgmd"))
		}
	}
	return s
}

// Start validates the configuration, binds the client port, starts the
// member link and the event fan-out, then accepts client connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return errors.ErrServerAlreadyStarted
	}

	s.logger.Infof("Starting mgmd %s on %s/%s..", Version, runtime.GOOS, runtime.GOARCH)
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	instruments, err := imetric.NewInstruments(imetric.NewProvider(imetric.WithMeterProvider(s.meterProvider)).Meter())
	if err != nil {
		return fmt.Errorf("failed to create metric instruments: %w", err)
	}

	// the transport and the sessions outlive the caller's context
	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.registry = registry.New(s.config.Nodes, s.logger)
	s.transport = transport.New(s.link,
		transport.WithLogger(s.logger),
		transport.WithInstruments(instruments))
	s.events = eventstream.New(s.transport, s.registry,
		eventstream.WithLogger(s.logger),
		eventstream.WithWriteTimeout(s.config.ListenerWriteTimeout),
		eventstream.WithPingInterval(s.config.PingInterval),
		eventstream.WithInstruments(instruments))
	s.transport.SetEventSink(s.events)

	s.deps = &session.Dependencies{
		Registry:  s.registry,
		Transport: s.transport,
		Events:    s.events,
		Config:    s.config,
		Logger:    s.logger,
		Metrics:   instruments,
		Version:   Version,
		VersionID: VersionID,
	}

	listener, err := tcp.NewServer(s.config.ListenAddress,
		tcp.WithServerContext(serverCtx),
		tcp.WithMaxConnections(s.config.MaxSessions),
		tcp.WithRequestHandler(s.serveSession))
	if err != nil {
		cancel()
		return err
	}

	var linkStarted bool
	if err := chain.
		New(chain.WithFailFast(), chain.WithContext(ctx)).
		Step("bind client port", listener.Listen).
		ContextStep("start member link", func(ctx context.Context) error {
			if err := s.link.Start(ctx, s.transport); err != nil {
				return err
			}
			linkStarted = true
			return nil
		}).
		Run(); err != nil {
		cancel()
		_ = listener.Shutdown(-1)
		if linkStarted {
			_ = s.link.Stop()
		}
		return err
	}

	s.events.Start(serverCtx)
	s.listener = listener
	s.cancel = cancel
	s.stopping.Store(false)

	group := new(errgroup.Group)
	group.Go(listener.Serve)
	s.group = group

	address := listener.ListenAddr()
	if advertised, err := tcp.AdvertisedIP(address.String()); err == nil {
		s.logger.Infof("mgmd listening on %s (advertised %s:%d)", address, advertised, address.Port)
	} else {
		s.logger.Infof("mgmd listening on %s", address)
	}

	s.started.Store(true)
	return nil
}

// Stop stops accepting connections, ends every session and listener,
// stops the fan-out and the member link. Errors are combined.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return errors.ErrServerNotStarted
	}

	s.logger.Info("Shutdown process begins.:)")
	s.stopping.Store(true)
	defer s.started.Store(false)

	var grace time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		grace = max(time.Until(deadline), time.Millisecond)
	}

	err := chain.
		New(chain.WithRunAll(), chain.WithContext(ctx)).
		Step("stop accepting", func() error { return s.listener.Shutdown(grace) }).
		Step("close sessions", func() error {
			// unblocks sessions waiting on member replies
			s.cancel()
			s.closeSessions()
			return nil
		}).
		ContextStep("drain connections", s.wait).
		Step("stop event fan-out", func() error {
			s.events.Stop()
			s.events.UnsubscribeAll()
			return nil
		}).
		Step("stop member link", s.link.Stop).
		Run()

	if err != nil {
		s.logger.Errorf("shutdown completed with errors: %v", err)
		return err
	}
	s.logger.Info("mgmd stopped")
	return nil
}

// Addr returns the address the client port is bound to, or nil when the
// server is not started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || !s.started.Load() {
		return nil
	}
	return s.listener.ListenAddr()
}

// Running reports whether the server is started
func (s *Server) Running() bool {
	return s.started.Load()
}

// Sessions returns the number of live client sessions
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

// Listeners returns the number of event listeners
func (s *Server) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return 0
	}
	return s.events.ListenerCount()
}

func (s *Server) serveSession(conn tcp.Connection) {
	sess := session.New(conn, s.deps)
	s.sessions.Store(sess.ID(), sess)
	defer s.sessions.Delete(sess.ID())

	if s.stopping.Load() {
		_ = sess.Close()
		return
	}

	if err := sess.Run(conn.Context()); err != nil {
		s.logger.Warnf("session %s ended: %v", sess.ID(), err)
	}
}

func (s *Server) closeSessions() {
	for _, sess := range s.sessions.Snapshot() {
		if err := sess.Close(); err != nil {
			s.logger.Debugf("closing session %s: %v", sess.ID(), err)
		}
	}
}

// wait blocks until the accept loops and every session are done
func (s *Server) wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
