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

package registry

import (
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
	"github.com/tochemey/mgmd/log"
)

// MaxNodes is the size of the node id universe
const MaxNodes = config.MaxNodes

// NodeID identifies a cluster member
type NodeID = config.NodeID

// NodeType is the role of a cluster member
type NodeType = config.NodeType

type node struct {
	config.Node
	// addresses are the resolved forms of the configured host.
	// empty means any client address matches.
	addresses []string
}

func (n node) matches(clientAddress string) bool {
	if len(n.addresses) == 0 {
		return true
	}
	client := normalizeAddress(clientAddress)
	return slices.Contains(n.addresses, client)
}

// Registry owns the set of configured node identities and tracks
// which of them are currently claimed by a Reservation.
type Registry struct {
	mu       sync.Mutex
	nodes    map[NodeID]node
	ids      []NodeID
	reserved NodeBitmask
	logger   log.Logger
}

// New creates a Registry for the given configured nodes.
// Configured hosts are resolved once here.
func New(nodes []config.Node, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.DiscardLogger
	}

	registry := &Registry{
		nodes:    make(map[NodeID]node, len(nodes)),
		ids:      make([]NodeID, 0, len(nodes)),
		reserved: NewNodeBitmask(),
		logger:   logger,
	}

	for _, cfg := range nodes {
		if cfg.ID == 0 || cfg.ID > MaxNodes {
			logger.Warnf("node id=%d is out of range and is ignored", cfg.ID)
			continue
		}
		if _, ok := registry.nodes[cfg.ID]; !ok {
			registry.ids = append(registry.ids, cfg.ID)
		}
		registry.nodes[cfg.ID] = node{
			Node:      cfg,
			addresses: resolveHost(cfg.Host),
		}
	}

	slices.Sort(registry.ids)
	return registry
}

// Allocate validates that the given node id can be handed out to the
// given client on behalf of owner. When requested is zero the lowest
// free id of the given type whose host matches the client is picked.
// Allocate does not mark the id; use Reservation.Reserve for that.
// owner may be nil.
func (r *Registry) Allocate(requested NodeID, nodeType NodeType, clientAddress string, owner *Reservation) (NodeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocate(requested, nodeType, clientAddress, owner)
}

// IsReserved reports whether the given id is claimed
func (r *Registry) IsReserved(id NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserved.Get(id)
}

// NextIDOfType returns the lowest configured id of the given type that
// is greater than cursor, or zero when there is none.
// Starting from zero it walks every node of that type.
func (r *Registry) NextIDOfType(cursor NodeID, nodeType NodeType) NodeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.ids {
		if id > cursor && r.nodes[id].Type == nodeType {
			return id
		}
	}
	return 0
}

// IDsOfType returns every configured id of the given type, ascending
func (r *Registry) IDsOfType(nodeType NodeType) []NodeID {
	var ids []NodeID
	for id := r.NextIDOfType(0, nodeType); id != 0; id = r.NextIDOfType(id, nodeType) {
		ids = append(ids, id)
	}
	return ids
}

// Node returns the configuration of the given id
func (r *Registry) Node(id NodeID) (config.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	return n.Node, ok
}

// Nodes returns the configured nodes ordered by id
func (r *Registry) Nodes() []config.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]config.Node, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.nodes[id].Node)
	}
	return out
}

// Reserved returns a snapshot of the claimed ids
func (r *Registry) Reserved() NodeBitmask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserved.Clone()
}

// NewReservation creates an empty Reservation drawn from this Registry
func (r *Registry) NewReservation() *Reservation {
	return &Reservation{
		registry: r,
		bits:     NewNodeBitmask(),
	}
}

// allocate must be called with the lock held
func (r *Registry) allocate(requested NodeID, nodeType NodeType, clientAddress string, owner *Reservation) (NodeID, error) {
	if requested != 0 {
		n, ok := r.nodes[requested]
		switch {
		case !ok:
			return 0, fmt.Errorf("node id=%d: %w", requested, errors.ErrNotConfigured)
		case n.Type != nodeType:
			return 0, fmt.Errorf("node id=%d is of type %s not %s: %w", requested, n.Type, nodeType, errors.ErrWrongType)
		case !n.matches(clientAddress):
			return 0, fmt.Errorf("node id=%d is not configured for host %s: %w", requested, clientAddress, errors.ErrNotConfigured)
		case r.reserved.Get(requested) && !owner.holds(requested):
			return 0, fmt.Errorf("node id=%d: %w", requested, errors.ErrAlreadyInUse)
		}
		return requested, nil
	}

	var sameType, hostMatched bool
	for _, id := range r.ids {
		n := r.nodes[id]
		if n.Type != nodeType {
			continue
		}
		sameType = true
		if !n.matches(clientAddress) {
			continue
		}
		hostMatched = true
		if !r.reserved.Get(id) {
			return id, nil
		}
	}

	switch {
	case !sameType:
		return 0, fmt.Errorf("no node of type %s: %w", nodeType, errors.ErrNotConfigured)
	case !hostMatched:
		return 0, fmt.Errorf("no node of type %s for host %s: %w", nodeType, clientAddress, errors.ErrNotConfigured)
	default:
		return 0, fmt.Errorf("every node of type %s: %w", nodeType, errors.ErrAlreadyInUse)
	}
}

// claim must be called with the lock held
func (r *Registry) claim(id NodeID) {
	r.reserved.Set(id)
}

// release must be called with the lock held
func (r *Registry) release(id NodeID) {
	r.reserved.Clear(id)
}

func resolveHost(host string) []string {
	if host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}
	}

	resolved, err := net.LookupHost(host)
	if err != nil || len(resolved) == 0 {
		return []string{host}
	}

	addresses := make([]string, 0, len(resolved))
	for _, address := range resolved {
		addresses = append(addresses, normalizeAddress(address))
	}
	return addresses
}

func normalizeAddress(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		address = host
	}
	if ip := net.ParseIP(address); ip != nil {
		return ip.String()
	}
	return address
}
