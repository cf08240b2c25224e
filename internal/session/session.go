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

// Package session implements the client side of the management server:
// one Session per accepted connection reads requests, dispatches them to
// the command table and writes replies.
package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/tochemey/mgmd/config"
	gerrors "github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/eventstream"
	"github.com/tochemey/mgmd/internal/metric"
	"github.com/tochemey/mgmd/internal/registry"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/internal/tcp"
	"github.com/tochemey/mgmd/log"
)

// Signaller exchanges signals with cluster members
type Signaller interface {
	Send(ctx context.Context, node config.NodeID, sig *signal.Signal, unconditional bool) error
	SendAndWait(ctx context.Context, node config.NodeID, sig *signal.Signal, expect []signal.Kind, timeout time.Duration) (*signal.Signal, error)
	IsConnected(node config.NodeID) bool
}

// EventService accepts connections handed over by "listen event"
type EventService interface {
	Subscribe(conn eventstream.Conn, filter signal.LogLevel, parsable bool) *eventstream.Listener
	ClusterLogLevel() signal.LogLevel
}

// Dependencies are the server components shared by every Session
type Dependencies struct {
	Registry  *registry.Registry
	Transport Signaller
	Events    EventService
	Config    *config.Config
	Logger    log.Logger
	Metrics   *metric.Instruments
	// Version is reported by "get version"
	Version string
	// VersionID is the numeric form of Version
	VersionID uint32
}

// Session serves the requests of a single client connection
type Session struct {
	id          uuid.UUID
	conn        tcp.Connection
	reader      *bufio.Reader
	deps        *Dependencies
	reservation *registry.Reservation
	logger      log.Logger
	terminated  *atomic.Bool
	// handoff runs once the current reply is written
	handoff func()

	// mu orders Close against the hand-off of the connection
	mu     sync.Mutex
	closed bool
}

// New creates a Session over the given connection
func New(conn tcp.Connection, deps *Dependencies) *Session {
	id := uuid.New()
	logger := deps.Logger
	if logger == nil {
		logger = log.DiscardLogger
	}

	return &Session{
		id:          id,
		conn:        conn,
		reader:      bufio.NewReaderSize(conn, MaxLineLength),
		deps:        deps,
		reservation: deps.Registry.NewReservation(),
		logger:      logger.With("session", id.String(), "peer", conn.RemoteAddr().String()),
		terminated:  atomic.NewBool(false),
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id.String()
}

// Reservation returns the node ids claimed by this session
func (s *Session) Reservation() *registry.Reservation {
	return s.reservation
}

// Run serves requests until the client says bye, hands the connection
// over to the event service, disconnects or the connection is closed.
// The session's reservation is released when Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.deps.Metrics.SessionOpened(ctx)
	defer s.deps.Metrics.SessionClosed(ctx)
	defer s.reservation.Release()

	s.logger.Debug("session started")
	defer s.logger.Debug("session ended")

	for !s.terminated.Load() {
		req, err := ReadRequest(s.reader)
		if errors.Is(err, ErrRequestTooLarge) {
			return s.reject(ctx, req, err)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || s.terminated.Load() {
				return nil
			}
			return err
		}

		reply := s.dispatch(ctx, req)
		if err := s.write(reply); err != nil {
			return err
		}
		if s.handoff != nil {
			handoff := s.handoff
			s.handoff = nil
			handoff()
		}
	}
	return nil
}

// Close terminates the session. A connection already handed over to the
// event service is left open.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.terminated.Store(true)
	if s.conn.Detached() {
		return nil
	}
	return s.conn.Close()
}

// detach hands the connection over unless the session was closed first
func (s *Session) detach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn.Detach()
	return true
}

func (s *Session) dispatch(ctx context.Context, req *Request) (reply *Reply) {
	cmd, ok := lookup(req.Command)
	if !ok {
		s.logger.Debugf("unknown command %q", req.Command)
		reply = NewReply(req.Command).Result(gerrors.ErrUnknownCommand)
		// client text never becomes a metric attribute
		s.deps.Metrics.CommandDispatched(ctx, unknownCommand, reply.ResultText())
		return reply
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("command %q panicked: %v", cmd.Name, r)
			reply = NewReply(cmd.Name).Result(gerrors.ErrInternal)
			s.handoff = nil
		}
		s.deps.Metrics.CommandDispatched(ctx, cmd.Name, reply.ResultText())
	}()

	if req.malformed != "" {
		s.logger.Debugf("malformed argument line %q", req.malformed)
		return NewReply(cmd.Name).Result(gerrors.ErrBadArgumentType)
	}

	args, err := parseArgs(cmd.Args, req.Args)
	if err != nil {
		s.logger.Debugf("command %q: %v", cmd.Name, err)
		return NewReply(cmd.Name).Result(err)
	}

	s.logger.Debugf("dispatching %q", cmd.Name)
	return cmd.Handler(ctx, s, args)
}

// reject answers an oversized request with an internal error and ends
// the session, since the rest of the request is still unread
func (s *Session) reject(ctx context.Context, req *Request, cause error) error {
	command := unknownCommand
	if req != nil {
		if cmd, ok := lookup(req.Command); ok {
			command = cmd.Name
		}
	}

	s.logger.Warnf("closing session: %v", cause)
	reply := NewReply(command).Result(cause)
	s.deps.Metrics.CommandDispatched(ctx, command, reply.ResultText())
	s.terminate()
	return s.write(reply)
}

func (s *Session) write(reply *Reply) error {
	_, err := reply.WriteTo(s.conn)
	return err
}

func (s *Session) terminate() {
	s.terminated.Store(true)
}

func (s *Session) clientAddress() string {
	if addr := s.conn.ClientAddr(); addr != nil {
		return addr.IP.String()
	}
	return ""
}
