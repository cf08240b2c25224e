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
	"net"
	"time"

	"go.uber.org/atomic"
)

// Connection is an accepted client connection
type Connection interface {
	net.Conn

	// ClientAddr returns the remote peer address or nil when the
	// connection is not TCP
	ClientAddr() *net.TCPAddr
	// Accepted returns when the connection was accepted
	Accepted() time.Time
	// Context returns the server context
	Context() context.Context
	// Detach transfers ownership of the connection to the caller. The
	// server does not close a detached connection when the handler
	// returns.
	Detach()
	// Detached reports whether Detach was called
	Detached() bool
}

type conn struct {
	net.Conn
	ctx      context.Context
	accepted time.Time
	detached atomic.Bool
}

var _ Connection = (*conn)(nil)

// Wrap turns a net.Conn into a Connection carrying ctx
func Wrap(ctx context.Context, c net.Conn) Connection {
	if ctx == nil {
		ctx = context.Background()
	}
	return &conn{Conn: c, ctx: ctx, accepted: time.Now()}
}

func (c *conn) ClientAddr() *net.TCPAddr {
	addr, _ := c.RemoteAddr().(*net.TCPAddr)
	return addr
}

func (c *conn) Accepted() time.Time      { return c.accepted }
func (c *conn) Context() context.Context { return c.ctx }
func (c *conn) Detach()                  { c.detached.Store(true) }
func (c *conn) Detached() bool           { return c.detached.Load() }
