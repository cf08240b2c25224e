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

package transport

import (
	"context"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/internal/signal"
)

// Link carries signals to cluster members. It is implemented by the
// member connectivity layer.
type Link interface {
	// Send hands the signal to the given member
	Send(ctx context.Context, node config.NodeID, sig *signal.Signal) error
	// IsConnected reports whether the given member is reachable
	IsConnected(node config.NodeID) bool
}

// EventSink consumes cluster events received from members
type EventSink interface {
	Deliver(sig *signal.Signal)
}

// Receiver is notified by the member connectivity layer
type Receiver interface {
	OnMessageReceived(sig *signal.Signal)
	OnNodeStatusChanged(node config.NodeID, alive bool)
}
