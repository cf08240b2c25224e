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

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/mgmd/config"
	gerrors "github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/signal"
)

var (
	startReplies     = []signal.Kind{signal.StartConf, signal.StartRef}
	stopReplies      = []signal.Kind{signal.StopConf, signal.StopRef}
	subscribeReplies = []signal.Kind{signal.EventSubscribeConf, signal.EventSubscribeRef}
)

func getNodeID(_ context.Context, s *Session, args Args) *Reply {
	reply := NewReply("get nodeid")

	version, _ := args.Int("version")
	if minVersion := s.deps.Config.MinClientVersion; minVersion > 0 && version < int64(minVersion) {
		s.logger.Warnf("client version %d is below %d", version, minVersion)
		return reply.Result(fmt.Errorf("client version %d: %w", version, gerrors.ErrIncompatibleVersion))
	}

	typeName, _ := args.String("nodetype")
	nodeType, err := config.ParseNodeType(typeName)
	if err != nil {
		return reply.Result(fmt.Errorf("%w: %w", err, gerrors.ErrBadArgumentType))
	}

	requested, _ := args.Int("nodeid")
	if requested < 0 {
		return reply.Result(fmt.Errorf("node id %d: %w", requested, gerrors.ErrBadArgumentType))
	}
	if requested > config.MaxNodes {
		return reply.Result(fmt.Errorf("node id %d: %w", requested, gerrors.ErrNotConfigured))
	}

	address := s.clientAddress()
	id, err := s.reservation.Reserve(config.NodeID(requested), nodeType, address)
	if err != nil {
		s.logger.Warnf("allocating a %s node id for %s: %v", nodeType, address, err)
		return reply.Result(err)
	}

	name, _ := args.String("name")
	s.logger.Infof("node id=%d (%s %s) allocated to %s", id, nodeType, name, address)
	return reply.Add("nodeid", id).Result(nil)
}

func start(ctx context.Context, s *Session, args Args) *Reply {
	reply := NewReply("start")
	ids, err := s.targets(args)
	if err != nil {
		return reply.Result(err)
	}

	started, err := s.controlNodes(ctx, ids, func(id config.NodeID) *signal.Signal {
		return signal.New(signal.StartOrd, id)
	}, startReplies)
	return reply.Add("started", started).Result(err)
}

func stop(ctx context.Context, s *Session, args Args) *Reply {
	reply := NewReply("stop")
	ids, err := s.targets(args)
	if err != nil {
		return reply.Result(err)
	}

	stopped, err := s.controlNodes(ctx, ids, stopOrder(args.Bool("abort"), false, false, false), stopReplies)
	return reply.Add("stopped", stopped).Result(err)
}

func stopAll(ctx context.Context, s *Session, args Args) *Reply {
	reply := NewReply("stop all")
	ids := s.deps.Registry.IDsOfType(config.NodeTypeDB)
	stopped, err := s.controlNodes(ctx, ids, stopOrder(args.Bool("abort"), false, false, false), stopReplies)
	return reply.Add("stopped", stopped).Result(err)
}

func restart(ctx context.Context, s *Session, args Args) *Reply {
	reply := NewReply("restart")
	ids, err := s.targets(args)
	if err != nil {
		return reply.Result(err)
	}

	order := stopOrder(args.Bool("abort"), true, args.Bool("initial"), args.Bool("nostart"))
	restarted, err := s.controlNodes(ctx, ids, order, stopReplies)
	return reply.Add("restarted", restarted).Result(err)
}

func listenEvent(_ context.Context, s *Session, args Args) *Reply {
	reply := NewReply("listen event")

	spec, _ := args.String("filter")
	filter, err := signal.ParseLogLevel(spec)
	if err != nil {
		return reply.Result(err)
	}

	parsable := args.Bool("parsable")
	s.handoff = func() {
		if !s.detach() {
			s.logger.Debug("session closed before the connection was handed over")
			return
		}
		listener := s.deps.Events.Subscribe(s.conn, filter, parsable)
		s.logger.Infof("connection handed over to event listener %s (filter %s)", listener.ID(), filter)
	}
	s.terminate()
	return reply.Result(nil)
}

func setClusterLogLevel(ctx context.Context, s *Session, args Args) *Reply {
	reply := NewReply("set cluster loglevel")
	ids, level, err := s.logLevelTargets(args)
	if err != nil {
		return reply.Result(err)
	}

	var lastErr error
	for _, id := range ids {
		sig := signal.New(signal.EventSubscribeReq, id)
		sig.LogLevel = level
		answer, err := s.deps.Transport.SendAndWait(ctx, id, sig, subscribeReplies, s.deps.Config.SignalTimeout)
		if err == nil {
			err = refusal(answer)
		}
		if err != nil {
			s.logger.Warnf("setting the cluster log level of node id=%d: %v", id, err)
			lastErr = err
		}
	}
	return reply.Result(lastErr)
}

func setLogLevel(ctx context.Context, s *Session, args Args) *Reply {
	reply := NewReply("set loglevel")
	ids, level, err := s.logLevelTargets(args)
	if err != nil {
		return reply.Result(err)
	}

	var lastErr error
	for _, id := range ids {
		sig := signal.New(signal.SetLogLevelOrd, id)
		sig.LogLevel = level
		if err := s.deps.Transport.Send(ctx, id, sig, false); err != nil {
			s.logger.Warnf("setting the log level of node id=%d: %v", id, err)
			lastErr = err
		}
	}
	return reply.Result(lastErr)
}

func getClusterLogLevel(_ context.Context, s *Session, _ Args) *Reply {
	reply := NewReply("get cluster loglevel")
	level := s.deps.Events.ClusterLogLevel()
	for _, category := range signal.Categories() {
		if threshold, ok := level.Get(category); ok {
			reply.Add(strings.ToLower(category.String()), threshold)
		}
	}
	return reply.Result(nil)
}

func getStatus(_ context.Context, s *Session, args Args) *Reply {
	reply := NewReply("get status")

	types := mapset.NewThreadUnsafeSet[config.NodeType]()
	value, _ := args.String("types")
	for _, name := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
		nodeType, err := config.ParseNodeType(name)
		if err != nil {
			return reply.Result(fmt.Errorf("%w: %w", err, gerrors.ErrBadArgumentType))
		}
		types.Add(nodeType)
	}

	for _, node := range s.deps.Registry.Nodes() {
		if !types.IsEmpty() && !types.Contains(node.Type) {
			continue
		}
		status := "NO_CONTACT"
		if s.deps.Transport.IsConnected(node.ID) {
			status = "CONNECTED"
		}
		prefix := "node." + strconv.FormatUint(uint64(node.ID), 10) + "."
		reply.Add(prefix+"type", node.Type).
			Add(prefix+"status", status).
			Add(prefix+"reserved", s.deps.Registry.IsReserved(node.ID))
	}
	return reply.Result(nil)
}

func getVersion(_ context.Context, s *Session, _ Args) *Reply {
	return NewReply("get version").
		Add("id", s.deps.VersionID).
		Add("version", s.deps.Version).
		Result(nil)
}

func checkConnection(_ context.Context, _ *Session, _ Args) *Reply {
	return NewReply("check connection").Result(nil)
}

func bye(_ context.Context, s *Session, _ Args) *Reply {
	s.terminate()
	return NewReply("bye").Result(nil)
}

// targets returns the node list argument, or every DB node when it is
// absent or empty.
func (s *Session) targets(args Args) ([]config.NodeID, error) {
	ids, err := args.NodeIDs("node")
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return ids, nil
	}
	for id := s.deps.Registry.NextIDOfType(0, config.NodeTypeDB); id != 0; id = s.deps.Registry.NextIDOfType(id, config.NodeTypeDB) {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Session) logLevelTargets(args Args) ([]config.NodeID, signal.LogLevel, error) {
	var level signal.LogLevel

	name, _ := args.String("category")
	category, err := signal.ParseCategory(name)
	if err != nil {
		return nil, level, err
	}

	threshold, _ := args.Int("level")
	if threshold < 0 || threshold > signal.MaxLevel {
		return nil, level, fmt.Errorf("level %d: %w", threshold, gerrors.ErrInvalidLogLevel)
	}
	level.Set(category, uint8(threshold))

	node, _ := args.Int("node")
	switch {
	case node == 0:
		return s.deps.Registry.IDsOfType(config.NodeTypeDB), level, nil
	case node < 0 || node > config.MaxNodes:
		return nil, level, fmt.Errorf("node id %d: %w", node, gerrors.ErrBadArgumentType)
	}

	id := config.NodeID(node)
	if err := s.checkDBNode(id); err != nil {
		return nil, level, err
	}
	return []config.NodeID{id}, level, nil
}

// controlNodes sends a node-control order to every node in turn. It
// keeps going past failures and returns the number of nodes that
// confirmed along with the last failure.
func (s *Session) controlNodes(ctx context.Context, ids []config.NodeID, order func(config.NodeID) *signal.Signal, expect []signal.Kind) (int, error) {
	var (
		done    int
		lastErr error
	)
	for _, id := range ids {
		sig := order(id)
		if err := s.control(ctx, id, sig, expect); err != nil {
			s.logger.Warnf("%s to node id=%d failed: %v", sig.Kind, id, err)
			lastErr = err
			continue
		}
		done++
	}
	return done, lastErr
}

func (s *Session) control(ctx context.Context, id config.NodeID, sig *signal.Signal, expect []signal.Kind) error {
	if err := s.checkDBNode(id); err != nil {
		return err
	}

	answer, err := s.deps.Transport.SendAndWait(ctx, id, sig, expect, s.deps.Config.SignalTimeout)
	if err != nil {
		return noContact(err)
	}
	return refusal(answer)
}

func (s *Session) checkDBNode(id config.NodeID) error {
	node, ok := s.deps.Registry.Node(id)
	switch {
	case !ok:
		return fmt.Errorf("node id=%d: %w", id, gerrors.ErrNotConfigured)
	case node.Type != config.NodeTypeDB:
		return fmt.Errorf("node id=%d is a %s node: %w", id, node.Type, gerrors.ErrWrongType)
	}
	return nil
}

func stopOrder(abort, restart, initial, noStart bool) func(config.NodeID) *signal.Signal {
	return func(id config.NodeID) *signal.Signal {
		sig := signal.New(signal.StopReq, id)
		sig.Abort = abort
		sig.Restart = restart
		sig.Initial = initial
		sig.NoStart = noStart
		return sig
	}
}

// noContact reports transport failures of node-control orders as
// ErrNoContact: a node that timed out or died could not be contacted.
func noContact(err error) error {
	if errors.Is(err, gerrors.ErrTimeout) || errors.Is(err, gerrors.ErrNodeFailed) {
		return fmt.Errorf("%v: %w", err, gerrors.ErrNoContact)
	}
	return err
}

func refusal(answer *signal.Signal) error {
	switch answer.Kind {
	case signal.StopRef, signal.StartRef, signal.EventSubscribeRef:
		err := answer.Err()
		if err == nil {
			err = gerrors.ErrNodeRefused
		}
		return fmt.Errorf("node id=%d refused: %w", answer.Node, err)
	}
	return nil
}
