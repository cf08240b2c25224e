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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/internal/transport"
	"github.com/tochemey/mgmd/log"
)

const subject = "cluster"

func startNatsServer(t *testing.T) *natsserver.Server {
	t.Helper()
	serv, err := natsserver.NewServer(&natsserver.Options{
		Host: "127.0.0.1",
		Port: -1,
	})
	require.NoError(t, err)

	ready := make(chan bool)
	go func() {
		ready <- true
		serv.Start()
	}()
	<-ready

	if !serv.ReadyForConnections(2 * time.Second) {
		t.Fatalf("nats-io server failed to start")
	}
	return serv
}

type statusChange struct {
	node  config.NodeID
	alive bool
}

type recorder struct {
	mu       sync.Mutex
	messages []*signal.Signal
	changes  []statusChange
}

func (r *recorder) OnMessageReceived(sig *signal.Signal) {
	r.mu.Lock()
	r.messages = append(r.messages, sig)
	r.mu.Unlock()
}

func (r *recorder) OnNodeStatusChanged(node config.NodeID, alive bool) {
	r.mu.Lock()
	r.changes = append(r.changes, statusChange{node: node, alive: alive})
	r.mu.Unlock()
}

func (r *recorder) Messages() []*signal.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*signal.Signal(nil), r.messages...)
}

func (r *recorder) Changes() []statusChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statusChange(nil), r.changes...)
}

// member simulates a cluster member process on the NATS server
type member struct {
	id         config.NodeID
	codec      *signal.Codec
	connection *nats.Conn
}

func newMember(t *testing.T, url string, id config.NodeID) *member {
	t.Helper()
	connection, err := nats.Connect(url)
	require.NoError(t, err)
	return &member{id: id, codec: signal.NewCodec(), connection: connection}
}

func (m *member) publish(t *testing.T, sig *signal.Signal) {
	t.Helper()
	sig.Node = m.id
	data, err := m.codec.Encode(sig)
	require.NoError(t, err)
	require.NoError(t, m.connection.Publish(InboundSubject(subject), data))
	require.NoError(t, m.connection.Flush())
}

// serve replies to every StopReq with a StopConf
func (m *member) serve(t *testing.T) {
	t.Helper()
	_, err := m.connection.Subscribe(NodeSubject(subject, m.id), func(msg *nats.Msg) {
		sig, err := m.codec.Decode(msg.Data)
		if err != nil || sig.Kind != signal.StopReq {
			return
		}
		reply, _ := m.codec.Encode(&signal.Signal{Kind: signal.StopConf, Node: m.id})
		_ = m.connection.Publish(InboundSubject(subject), reply)
	})
	require.NoError(t, err)
	require.NoError(t, m.connection.Flush())
}

// sendingReceiver calls back into the link when a member goes down,
// as the transport does when it publishes the disconnect event
type sendingReceiver struct {
	recorder
	link    *Link
	entered chan struct{}
	proceed chan struct{}
	sent    chan error
}

func (r *sendingReceiver) OnNodeStatusChanged(node config.NodeID, alive bool) {
	r.recorder.OnNodeStatusChanged(node, alive)
	if alive {
		return
	}
	close(r.entered)
	<-r.proceed
	r.sent <- r.link.Send(context.Background(), node, signal.New(signal.ClusterLogLevelOrd, node))
}

func newLink(url string, heartbeatTimeout time.Duration) *Link {
	return New(config.NATS{
		URL:               url,
		Subject:           subject,
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  heartbeatTimeout,
	}, WithLogger(log.DiscardLogger), WithName("mgmd-test"))
}

func TestLink(t *testing.T) {
	t.Run("With heartbeats and messages", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()
		url := fmt.Sprintf("nats://%s", srv.Addr().String())

		ctx := context.Background()
		receiver := new(recorder)
		link := newLink(url, 300*time.Millisecond)
		require.NoError(t, link.Start(ctx, receiver))
		require.ErrorIs(t, link.Start(ctx, receiver), ErrAlreadyStarted)

		node := newMember(t, url, 2)
		defer node.connection.Close()

		assert.False(t, link.IsConnected(2))
		node.publish(t, signal.New(signal.Heartbeat, 0))
		require.Eventually(t, func() bool { return link.IsConnected(2) }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []config.NodeID{2}, link.Connected())
		assert.Equal(t, []statusChange{{node: 2, alive: true}}, receiver.Changes())

		node.publish(t, signal.NewEvent(0, signal.CategoryStartup, 7, "starting"))
		require.Eventually(t, func() bool { return len(receiver.Messages()) == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, "starting", receiver.Messages()[0].Text)

		// silence marks the node down
		require.Eventually(t, func() bool { return !link.IsConnected(2) }, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, []statusChange{{node: 2, alive: true}, {node: 2, alive: false}}, receiver.Changes())

		require.NoError(t, link.Stop())
		require.NoError(t, link.Stop())
	})

	t.Run("With stop while a status change sends", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()
		url := fmt.Sprintf("nats://%s", srv.Addr().String())

		link := newLink(url, 60*time.Millisecond)
		receiver := &sendingReceiver{
			link:    link,
			entered: make(chan struct{}),
			proceed: make(chan struct{}),
			sent:    make(chan error, 1),
		}
		require.NoError(t, link.Start(context.Background(), receiver))

		node := newMember(t, url, 3)
		defer node.connection.Close()
		node.publish(t, signal.New(signal.Heartbeat, 0))

		select {
		case <-receiver.entered:
		case <-time.After(2 * time.Second):
			require.FailNow(t, "node was never marked down")
		}

		stopped := make(chan error, 1)
		go func() { stopped <- link.Stop() }()
		// let Stop reach the wait on the sweeper
		time.Sleep(50 * time.Millisecond)
		close(receiver.proceed)

		select {
		case err := <-stopped:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "stop did not return")
		}
		require.ErrorIs(t, <-receiver.sent, ErrNotStarted)
	})

	t.Run("With send", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()
		url := fmt.Sprintf("nats://%s", srv.Addr().String())

		ctx := context.Background()
		link := newLink(url, time.Minute)
		require.ErrorIs(t, link.Send(ctx, 2, signal.New(signal.StopReq, 2)), ErrNotStarted)
		require.NoError(t, link.Start(ctx, new(recorder)))

		node := newMember(t, url, 2)
		defer node.connection.Close()
		received := make(chan *nats.Msg, 1)
		_, err := node.connection.ChanSubscribe(NodeSubject(subject, 2), received)
		require.NoError(t, err)
		require.NoError(t, node.connection.Flush())

		require.NoError(t, link.Send(ctx, 2, &signal.Signal{Kind: signal.StopReq, Node: 2, Abort: true}))

		select {
		case msg := <-received:
			sig, err := signal.NewCodec().Decode(msg.Data)
			require.NoError(t, err)
			assert.Equal(t, signal.StopReq, sig.Kind)
			assert.True(t, sig.Abort)
		case <-time.After(2 * time.Second):
			t.Fatal("member did not receive the signal")
		}

		require.NoError(t, link.Stop())
	})

	t.Run("With transport round trip", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()
		url := fmt.Sprintf("nats://%s", srv.Addr().String())

		ctx := context.Background()
		link := newLink(url, time.Minute)
		tr := transport.New(link)
		require.NoError(t, link.Start(ctx, tr))
		defer func() { require.NoError(t, link.Stop()) }()

		node := newMember(t, url, 3)
		defer node.connection.Close()
		node.serve(t)
		node.publish(t, signal.New(signal.Heartbeat, 0))
		require.Eventually(t, func() bool { return link.IsConnected(3) }, time.Second, 10*time.Millisecond)

		reply, err := tr.SendAndWait(ctx, 3, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf, signal.StopRef}, time.Second)
		require.NoError(t, err)
		assert.Equal(t, signal.StopConf, reply.Kind)
		assert.EqualValues(t, 3, reply.Node)

		_, err = tr.SendAndWait(ctx, 4, signal.New(signal.StopReq, 0), []signal.Kind{signal.StopConf}, time.Second)
		require.ErrorIs(t, err, errors.ErrNoContact)
	})

	t.Run("With unreachable server", func(t *testing.T) {
		link := newLink("nats://127.0.0.1:1", time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.Error(t, link.Start(ctx, new(recorder)))
		assert.False(t, link.IsConnected(1))
	})
}
