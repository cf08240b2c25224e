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

// Reservation is the set of node ids claimed by a single owner, usually
// a client session. It is released when the owner goes away.
type Reservation struct {
	registry *Registry
	// bits is guarded by the registry lock
	bits NodeBitmask
}

// Reserve allocates a node id and claims it for this Reservation in a
// single step. Naming an id the Reservation already holds succeeds; an
// automatic pick only returns ids nobody holds.
func (x *Reservation) Reserve(requested NodeID, nodeType NodeType, clientAddress string) (NodeID, error) {
	x.registry.mu.Lock()
	defer x.registry.mu.Unlock()

	id, err := x.registry.allocate(requested, nodeType, clientAddress, x)
	if err != nil {
		return 0, err
	}

	x.registry.claim(id)
	x.bits.Set(id)
	x.registry.logger.Debugf("node id=%d reserved for %s", id, clientAddress)
	return id, nil
}

// Release returns every id this Reservation claimed to the Registry.
// Calling it more than once is harmless.
func (x *Reservation) Release() {
	x.registry.mu.Lock()
	defer x.registry.mu.Unlock()

	for _, id := range x.bits.IDs() {
		x.registry.release(id)
		x.bits.Clear(id)
		x.registry.logger.Debugf("node id=%d released", id)
	}
}

// IDs returns the ids currently held, ascending
func (x *Reservation) IDs() []NodeID {
	x.registry.mu.Lock()
	defer x.registry.mu.Unlock()
	return x.bits.IDs()
}

// Bitmask returns a snapshot of the ids currently held
func (x *Reservation) Bitmask() NodeBitmask {
	x.registry.mu.Lock()
	defer x.registry.mu.Unlock()
	return x.bits.Clone()
}

// holds must be called with the registry lock held. A nil
// Reservation holds nothing.
func (x *Reservation) holds(id NodeID) bool {
	return x != nil && x.bits.Get(id)
}
