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

package mgmd

import (
	"context"
	"fmt"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/internal/signal"
	"github.com/tochemey/mgmd/internal/transport"
)

// Link carries signals between the server and the cluster members.
// The NATS link is used when the configuration names a NATS server.
type Link interface {
	transport.Link
	// Start begins delivering member signals and liveness changes to the receiver
	Start(ctx context.Context, receiver transport.Receiver) error
	// Stop releases the link
	Stop() error
}

// standaloneLink is used when no member link is configured. No member
// is ever reachable.
type standaloneLink struct{}

var _ Link = standaloneLink{}

func (standaloneLink) Start(context.Context, transport.Receiver) error { return nil }
func (standaloneLink) Stop() error                                     { return nil }
func (standaloneLink) IsConnected(config.NodeID) bool                  { return false }

func (standaloneLink) Send(_ context.Context, node config.NodeID, _ *signal.Signal) error {
	return fmt.Errorf("node id=%d: no member link configured: %w", node, errors.ErrNoContact)
}
