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
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tochemey/mgmd/internal/signal"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	pingLine   = "<PING>\n"
)

// Conn is the client connection a listener writes events to
type Conn interface {
	io.Writer
	io.Closer
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Listener is a client subscribed to cluster events
type Listener struct {
	id       string
	conn     Conn
	filter   signal.LogLevel
	parsable bool
}

func newListener(conn Conn, filter signal.LogLevel, parsable bool) *Listener {
	return &Listener{
		id:       uuid.NewString(),
		conn:     conn,
		filter:   filter,
		parsable: parsable,
	}
}

// ID returns the listener id
func (l *Listener) ID() string {
	return l.id
}

// Filter returns the listener filter
func (l *Listener) Filter() signal.LogLevel {
	return l.filter
}

// write sends text to the client, giving up after timeout
func (l *Listener) write(text string, timeout time.Duration) error {
	if err := l.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := io.WriteString(l.conn, text)
	return err
}

func (l *Listener) format(event *signal.Signal) string {
	if l.parsable {
		return formatParsable(event)
	}
	return formatHuman(event)
}

func formatHuman(event *signal.Signal) string {
	var sb strings.Builder
	sb.WriteString(eventTime(event).Format(timeLayout))
	sb.WriteString(" [")
	sb.WriteString(event.Category.String())
	sb.WriteString("] Node ")
	sb.WriteString(strconv.FormatUint(uint64(event.Node), 10))
	sb.WriteString(": ")
	sb.WriteString(event.Text)
	sb.WriteByte('\n')
	return sb.String()
}

func formatParsable(event *signal.Signal) string {
	var sb strings.Builder
	writeField := func(key, value string) {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteByte('\n')
	}
	writeField("type", event.Kind.String())
	writeField("category", event.Category.String())
	writeField("severity", strconv.Itoa(int(event.Severity)))
	writeField("source_node", strconv.FormatUint(uint64(event.Node), 10))
	writeField("time", strconv.FormatInt(eventTime(event).Unix(), 10))
	writeField("text", event.Text)
	sb.WriteByte('\n')
	return sb.String()
}

func eventTime(event *signal.Signal) time.Time {
	if event.Time.IsZero() {
		return time.Now()
	}
	return event.Time
}
