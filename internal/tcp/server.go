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

package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// RequestHandlerFunc serves one accepted connection. The connection is
// closed when it returns unless it was detached.
type RequestHandlerFunc func(conn Connection)

// ServerOption configures a Server
type ServerOption func(*Server)

// WithRequestHandler sets the connection handler
func WithRequestHandler(handler RequestHandlerFunc) ServerOption {
	return func(s *Server) { s.handler = handler }
}

// WithServerContext sets the context every Connection carries
func WithServerContext(ctx context.Context) ServerOption {
	return func(s *Server) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithMaxConnections bounds the connections served at the same time.
// Connections accepted above the bound are closed right away. Zero or
// less means no bound.
func WithMaxConnections(limit int64) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.slots = semaphore.NewWeighted(limit)
		}
	}
}

// Server accepts TCP connections on a single address
type Server struct {
	address  string
	handler  RequestHandlerFunc
	ctx      context.Context
	slots    *semaphore.Weighted
	listener net.Listener
	inflight sync.WaitGroup
	active   atomic.Int64
	closed   atomic.Bool
	grace    atomic.Duration
}

// NewServer creates a Server for the given host:port
func NewServer(address string, opts ...ServerOption) (*Server, error) {
	if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
		return nil, fmt.Errorf("resolving address %q: %w", address, err)
	}

	s := &Server{address: address, ctx: context.Background()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Listen binds the address
func (s *Server) Listen() error {
	var lc net.ListenConfig
	listener, err := lc.Listen(s.ctx, "tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// ListenAddr returns the bound address or nil before Listen
func (s *Server) ListenAddr() *net.TCPAddr {
	if s.listener == nil {
		return nil
	}
	addr, _ := s.listener.Addr().(*net.TCPAddr)
	return addr
}

// ActiveConnections returns the number of connections being served
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Serve accepts connections until Shutdown is called, then waits for
// the connections in flight as Shutdown requested
func (s *Server) Serve() error {
	switch {
	case s.listener == nil:
		return ErrNotListening
	case s.handler == nil:
		return ErrNoHandler
	}

	for {
		c, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return s.drain()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			_ = s.Shutdown(-1)
			return err
		}

		if s.slots != nil && !s.slots.TryAcquire(1) {
			_ = c.Close()
			continue
		}

		s.inflight.Add(1)
		go s.serve(c)
	}
}

// Shutdown stops accepting connections. Serve then waits up to d for
// the connections in flight when d is positive, without bound when d is
// zero, and not at all when d is negative. Only the first call counts.
func (s *Server) Shutdown(d time.Duration) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.grace.Store(d)
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serve(nc net.Conn) {
	defer s.inflight.Done()
	if s.slots != nil {
		defer s.slots.Release(1)
	}

	s.active.Inc()
	defer s.active.Dec()

	c := Wrap(s.ctx, nc)
	s.handler(c)
	if !c.Detached() {
		_ = c.Close()
	}
}

func (s *Server) drain() error {
	grace := s.grace.Load()
	if grace < 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	if grace == 0 {
		<-done
		return nil
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
	return nil
}
