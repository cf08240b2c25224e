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

package signal

import (
	"strconv"
	"time"

	"github.com/tochemey/mgmd/config"
	"github.com/tochemey/mgmd/errors"
)

// Kind is the type of a signal
type Kind uint16

const (
	KindUnknown Kind = iota
	// StopReq asks a member to stop, or to restart when Restart is set.
	StopReq
	StopConf
	StopRef
	// StartOrd starts a member that was stopped with NoStart.
	StartOrd
	StartConf
	StartRef
	// EventSubscribeReq sets the event reporting threshold of a member.
	EventSubscribeReq
	EventSubscribeConf
	EventSubscribeRef
	// SetLogLevelOrd sets the local log level of a member. No reply.
	SetLogLevelOrd
	// ClusterLogLevelOrd pushes the aggregated listener threshold. No reply.
	ClusterLogLevelOrd
	// EventReport carries a cluster event from a member.
	EventReport
	// Heartbeat is sent periodically by every live member.
	Heartbeat
)

var kindNames = map[Kind]string{
	KindUnknown:        "Unknown",
	StopReq:            "StopReq",
	StopConf:           "StopConf",
	StopRef:            "StopRef",
	StartOrd:           "StartOrd",
	StartConf:          "StartConf",
	StartRef:           "StartRef",
	EventSubscribeReq:  "EventSubscribeReq",
	EventSubscribeConf: "EventSubscribeConf",
	EventSubscribeRef:  "EventSubscribeRef",
	SetLogLevelOrd:     "SetLogLevelOrd",
	ClusterLogLevelOrd: "ClusterLogLevelOrd",
	EventReport:        "EventReport",
	Heartbeat:          "Heartbeat",
}

// String returns the kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Signal is a typed control message exchanged with a cluster member.
// Node is the member the signal is addressed to or comes from.
type Signal struct {
	Kind     Kind          `cbor:"1,keyasint"`
	Node     config.NodeID `cbor:"2,keyasint,omitempty"`
	Abort    bool          `cbor:"3,keyasint,omitempty"`
	Restart  bool          `cbor:"4,keyasint,omitempty"`
	Initial  bool          `cbor:"5,keyasint,omitempty"`
	NoStart  bool          `cbor:"6,keyasint,omitempty"`
	Code     errors.Code   `cbor:"7,keyasint,omitempty"`
	Category Category      `cbor:"8,keyasint,omitempty"`
	Severity uint8         `cbor:"9,keyasint,omitempty"`
	LogLevel LogLevel      `cbor:"10,keyasint"`
	Text     string        `cbor:"11,keyasint,omitempty"`
	Time     time.Time     `cbor:"12,keyasint"`
	Version  uint32        `cbor:"13,keyasint,omitempty"`
}

// New creates a signal of the given kind for the given node
func New(kind Kind, node config.NodeID) *Signal {
	return &Signal{Kind: kind, Node: node}
}

// NewEvent creates an EventReport signal
func NewEvent(node config.NodeID, category Category, severity uint8, text string) *Signal {
	return &Signal{
		Kind:     EventReport,
		Node:     node,
		Category: category,
		Severity: severity,
		Text:     text,
		Time:     time.Now().UTC(),
	}
}

// Err returns the refusal carried by the signal, if any
func (s *Signal) Err() error {
	return errors.FromCode(s.Code)
}
