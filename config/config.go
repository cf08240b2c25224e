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

package config

import (
	"fmt"
	"time"

	"github.com/tochemey/mgmd/internal/validation"
	"github.com/tochemey/mgmd/log"
)

const (
	// DefaultListenAddress is the address management clients connect to.
	DefaultListenAddress  = "0.0.0.0:1186"
	defaultSignalTimeout  = 5 * time.Second
	defaultWriteTimeout   = 100 * time.Millisecond
	defaultPingInterval   = 10 * time.Second
	defaultHeartbeatCheck = time.Second
	defaultHeartbeatLimit = 5 * time.Second
	defaultNATSSubject    = "mgmd"
)

// NATS configures the member link carried over a NATS server.
type NATS struct {
	// URL of the NATS server in the format nats://host:port
	URL string `yaml:"url"`
	// Subject is the root subject under which signals are exchanged.
	Subject string `yaml:"subject"`
	// HeartbeatInterval is how often node liveness is checked.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	// HeartbeatTimeout is how long a node may stay silent before it is
	// considered disconnected.
	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout"`
}

// Config is the read-only configuration of the management server.
type Config struct {
	// ListenAddress is the host:port management clients connect to.
	ListenAddress string `yaml:"listenAddress"`
	// Nodes is the static map of configured cluster members.
	Nodes []Node `yaml:"nodes"`
	// SignalTimeout bounds every blocking signal exchange with a member.
	SignalTimeout time.Duration `yaml:"signalTimeout"`
	// ListenerWriteTimeout bounds each event write to a subscribed client;
	// a listener that cannot take an event within it is dropped.
	ListenerWriteTimeout time.Duration `yaml:"listenerWriteTimeout"`
	// PingInterval is how often subscribed clients receive a keep-alive line.
	PingInterval time.Duration `yaml:"pingInterval"`
	// MaxSessions bounds the client sessions served at the same time.
	// Zero means no bound.
	MaxSessions int64 `yaml:"maxSessions"`
	// MinClientVersion is the lowest version accepted by "get nodeid".
	MinClientVersion uint32 `yaml:"minClientVersion"`
	// NATS configures the member link.
	NATS NATS `yaml:"nats"`
	// Logger is the server logger.
	Logger log.Logger `yaml:"-"`
}

var _ validation.Validator = (*Config)(nil)

// New creates a Config with the given listen address and nodes and
// applies the options on top of the defaults.
func New(listenAddress string, nodes []Node, opts ...Option) *Config {
	config := &Config{
		ListenAddress: listenAddress,
		Nodes:         nodes,
	}
	config.SetDefaults()

	for _, opt := range opts {
		opt.Apply(config)
	}
	return config
}

// SetDefaults fills every unset field with its default value.
func (c *Config) SetDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.SignalTimeout <= 0 {
		c.SignalTimeout = defaultSignalTimeout
	}
	if c.ListenerWriteTimeout <= 0 {
		c.ListenerWriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = defaultNATSSubject
	}
	if c.NATS.HeartbeatInterval <= 0 {
		c.NATS.HeartbeatInterval = defaultHeartbeatCheck
	}
	if c.NATS.HeartbeatTimeout <= 0 {
		c.NATS.HeartbeatTimeout = defaultHeartbeatLimit
	}
	if c.Logger == nil {
		c.Logger = log.DefaultLogger
	}
}

// Validate checks the configuration and returns every violation found.
func (c *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewTCPAddressValidator(c.ListenAddress)).
		AddAssertion(len(c.Nodes) > 0, "at least one node must be configured").
		AddAssertion(c.SignalTimeout > 0, "signal timeout must be greater than zero").
		AddAssertion(c.ListenerWriteTimeout > 0, "listener write timeout must be greater than zero").
		AddAssertion(c.PingInterval > 0, "ping interval must be greater than zero").
		AddAssertion(c.MaxSessions >= 0, "max sessions must not be negative").
		AddAssertion(c.NATS.HeartbeatTimeout >= c.NATS.HeartbeatInterval, "heartbeat timeout must not be shorter than the heartbeat interval")

	seen := make(map[NodeID]struct{}, len(c.Nodes))
	for i, node := range c.Nodes {
		field := fmt.Sprintf("nodes[%d].id", i)
		chain.AddValidator(validation.NewRangeValidator(field, int64(node.ID), 1, MaxNodes)).
			AddAssertion(node.Type.Valid(), fmt.Sprintf("node %d has an invalid type", node.ID))

		_, duplicate := seen[node.ID]
		chain.AddAssertion(!duplicate, fmt.Sprintf("node %d is configured more than once", node.ID))
		seen[node.ID] = struct{}{}
	}

	if c.NATS.URL != "" {
		chain.AddValidator(validation.NewEmptyStringValidator("nats.subject", c.NATS.Subject))
	}

	return chain.Validate()
}

// Node returns the configuration of the given node id.
func (c *Config) Node(id NodeID) (Node, bool) {
	for _, node := range c.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}
