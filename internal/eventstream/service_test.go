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
	"bufio"
	"bytes"
	"context"
	"math/rand/v2"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/log"
)

type bufferConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	fail   bool
	closed bool
}

func (c *bufferConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return 0, net.ErrClosed
	}
	return c.buf.Write(p)
}

func (c *bufferConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *bufferConn) SetWriteDeadline(time.Time) error { return nil }

func (c *bufferConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
}

func (c *bufferConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *bufferConn) Reset() {
	c.mu.Lock()
	c.buf.Reset()
	c.mu.Unlock()
}

func (c *bufferConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type push struct {
	node          config.NodeID
	level         signal.LogLevel
	unconditional bool
}

type fakeSignaller struct {
	mu     sync.Mutex
	pushes []push
}

func (f *fakeSignaller) Send(_ context.Context, node config.NodeID, sig *signal.Signal, unconditional bool) error {
	f.mu.Lock()
	f.pushes = append(f.pushes, push{node: node, level: sig.LogLevel, unconditional: unconditional})
	f.mu.Unlock()
	return nil
}

func (f *fakeSignaller) Pushes() []push {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push(nil), f.pushes...)
}

type fakeMembers []config.NodeID

func (m fakeMembers) IDsOfType(nodeType config.NodeType) []config.NodeID {
	if nodeType != config.NodeTypeDB {
		return nil
	}
	return m
}

func mustParse(t *testing.T, spec string) signal.LogLevel {
	t.Helper()
	level, err := signal.ParseLogLevel(spec)
	require.NoError(t, err)
	return level
}

func newService(signaller Signaller) *Service {
	return New(signaller, fakeMembers{2, 3}, WithLogger(log.DiscardLogger), WithWriteTimeout(50*time.Millisecond))
}

func TestPublish(t *testing.T) {
	t.Run("With startup filter", func(t *testing.T) {
		service := newService(new(fakeSignaller))
		conn := new(bufferConn)
		service.Subscribe(conn, mustParse(t, "STARTUP=5"), false)

		event := signal.NewEvent(2, signal.CategoryStartup, 7, "Start phase 1 completed")
		event.Time = time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
		service.Publish(event)
		assert.Equal(t, "2026-01-02 03:04:05 [STARTUP] Node 2: Start phase 1 completed\n", conn.String())

		conn.Reset()
		service.Publish(signal.NewEvent(2, signal.CategoryStartup, 3, "too verbose"))
		service.Publish(signal.NewEvent(2, signal.CategoryError, 15, "other category"))
		assert.Empty(t, conn.String())
	})

	t.Run("With every category and severity", func(t *testing.T) {
		service := newService(new(fakeSignaller))
		conns := make([]*bufferConn, 6)
		filters := make([]signal.LogLevel, len(conns))
		for i := range conns {
			var filter signal.LogLevel
			for _, category := range signal.Categories() {
				if rand.IntN(2) == 0 {
					filter.Set(category, uint8(rand.IntN(signal.MaxLevel+1)))
				}
			}
			conns[i] = new(bufferConn)
			filters[i] = filter
			service.Subscribe(conns[i], filter, false)
		}

		for _, category := range signal.Categories() {
			for severity := uint8(0); severity <= signal.MaxLevel; severity++ {
				for _, conn := range conns {
					conn.Reset()
				}
				service.Publish(signal.NewEvent(3, category, severity, "probe"))
				for i, conn := range conns {
					delivered := strings.Contains(conn.String(), "probe")
					assert.Equal(t, filters[i].Admits(category, severity), delivered, "%s/%d listener %d", category, severity, i)
				}
			}
		}
	})

	t.Run("With parsable format", func(t *testing.T) {
		service := newService(new(fakeSignaller))
		conn := new(bufferConn)
		service.Subscribe(conn, mustParse(t, "ERROR=0"), true)

		event := signal.NewEvent(4, signal.CategoryError, 2, "disk full")
		event.Time = time.Unix(1700000000, 0)
		service.Deliver(event)
		assert.Equal(t, "type: EventReport\ncategory: ERROR\nseverity: 2\nsource_node: 4\ntime: 1700000000\ntext: disk full\n\n", conn.String())

		// only events are published
		conn.Reset()
		service.Deliver(signal.New(signal.StopConf, 4))
		assert.Empty(t, conn.String())
	})

	t.Run("With failing listener", func(t *testing.T) {
		signaller := new(fakeSignaller)
		service := newService(signaller)
		healthy := new(bufferConn)
		broken := &bufferConn{fail: true}
		service.Subscribe(healthy, mustParse(t, "STARTUP=5"), false)
		service.Subscribe(broken, mustParse(t, "STARTUP=1,ERROR=3"), false)
		assert.Equal(t, mustParse(t, "STARTUP=1,ERROR=3"), service.ClusterLogLevel())

		service.Publish(signal.NewEvent(2, signal.CategoryStartup, 9, "started"))
		assert.Contains(t, healthy.String(), "started")
		assert.Equal(t, 1, service.ListenerCount())
		assert.True(t, broken.Closed())
		assert.Equal(t, mustParse(t, "STARTUP=5"), service.ClusterLogLevel())

		pushes := signaller.Pushes()
		require.Len(t, pushes, 6)
		last := pushes[len(pushes)-1]
		assert.Equal(t, mustParse(t, "STARTUP=5"), last.level)
		assert.True(t, last.unconditional)
	})

	t.Run("With stalled listener", func(t *testing.T) {
		service := newService(new(fakeSignaller))
		client, server := net.Pipe()
		defer client.Close()
		service.Subscribe(server, mustParse(t, "STARTUP=0"), false)

		// nobody reads the client side
		start := time.Now()
		service.Publish(signal.NewEvent(2, signal.CategoryStartup, 9, "started"))
		assert.Less(t, time.Since(start), time.Second)
		assert.Zero(t, service.ListenerCount())
		assert.True(t, service.ClusterLogLevel().IsEmpty())
	})
}

func TestClusterLogLevel(t *testing.T) {
	t.Run("With subscribe and unsubscribe", func(t *testing.T) {
		signaller := new(fakeSignaller)
		service := newService(signaller)

		first := service.Subscribe(new(bufferConn), mustParse(t, "STARTUP=5,ERROR=10"), false)
		require.Len(t, signaller.Pushes(), 2)
		assert.Equal(t, config.NodeID(2), signaller.Pushes()[0].node)
		assert.Equal(t, config.NodeID(3), signaller.Pushes()[1].node)

		// an identical filter does not change the aggregate
		service.Subscribe(new(bufferConn), mustParse(t, "STARTUP=5,ERROR=10"), false)
		require.Len(t, signaller.Pushes(), 2)

		service.Subscribe(new(bufferConn), mustParse(t, "STARTUP=7,BACKUP=2,ERROR=3"), false)
		assert.Equal(t, mustParse(t, "STARTUP=5,ERROR=3,BACKUP=2"), service.ClusterLogLevel())
		require.Len(t, signaller.Pushes(), 4)

		require.True(t, service.Unsubscribe(first.ID()))
		require.False(t, service.Unsubscribe(first.ID()))
		assert.Equal(t, mustParse(t, "STARTUP=5,ERROR=3,BACKUP=2"), service.ClusterLogLevel())
		require.Len(t, signaller.Pushes(), 4)

		service.UnsubscribeAll()
		assert.Zero(t, service.ListenerCount())
		assert.True(t, service.ClusterLogLevel().IsEmpty())
		require.Len(t, signaller.Pushes(), 6)
	})

	t.Run("With random sequences", func(t *testing.T) {
		service := newService(new(fakeSignaller))
		var live []*Listener
		for range 200 {
			if len(live) > 0 && rand.IntN(3) == 0 {
				index := rand.IntN(len(live))
				require.True(t, service.Unsubscribe(live[index].ID()))
				live = append(live[:index], live[index+1:]...)
			} else {
				var filter signal.LogLevel
				filter.Set(signal.Category(rand.IntN(signal.CategoryCount)), uint8(rand.IntN(signal.MaxLevel+1)))
				live = append(live, service.Subscribe(new(bufferConn), filter, false))
			}

			var expected signal.LogLevel
			for _, listener := range live {
				expected = expected.Widen(listener.Filter())
			}
			require.Equal(t, expected, service.ClusterLogLevel())
			require.Equal(t, len(live), service.ListenerCount())
		}
	})
}

func TestPing(t *testing.T) {
	defer goleak.VerifyNone(t)

	service := New(new(fakeSignaller), fakeMembers{2}, WithLogger(log.DiscardLogger), WithPingInterval(10*time.Millisecond))
	client, server := net.Pipe()
	defer client.Close()
	service.Subscribe(server, mustParse(t, "INFO=1"), false)

	service.Start(context.Background())
	service.Start(context.Background())

	line, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, pingLine, line)

	service.Stop()
	service.Stop()
	service.UnsubscribeAll()
	assert.Zero(t, service.ListenerCount())
}
