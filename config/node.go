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
	"strconv"
	"strings"
)

// MaxNodes is the highest node id a cluster can configure.
const MaxNodes = 255

// NodeID identifies a cluster member process. Zero means "any".
type NodeID uint32

// NodeType is the role of a configured cluster member.
type NodeType int

const (
	// NodeTypeDB is a data (storage) node.
	NodeTypeDB NodeType = iota
	// NodeTypeAPI is an application node.
	NodeTypeAPI
	// NodeTypeMGM is a management server node.
	NodeTypeMGM
)

// String returns the node type name
func (t NodeType) String() string {
	switch t {
	case NodeTypeDB:
		return "NDB"
	case NodeTypeAPI:
		return "API"
	case NodeTypeMGM:
		return "MGM"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	return t >= NodeTypeDB && t <= NodeTypeMGM
}

// ParseNodeType resolves a node type from its name or its integer value.
func ParseNodeType(value string) (NodeType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "NDB", "DB":
		return NodeTypeDB, nil
	case "API":
		return NodeTypeAPI, nil
	case "MGM":
		return NodeTypeMGM, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || !NodeType(n).Valid() {
		return 0, fmt.Errorf("invalid node type %q", value)
	}
	return NodeType(n), nil
}

// UnmarshalText lets configuration files spell node types by name.
func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Node is the static configuration of one cluster member.
type Node struct {
	// ID is the node id, in range [1, MaxNodes].
	ID NodeID `yaml:"id"`
	// Type is the node role.
	Type NodeType `yaml:"type"`
	// Host restricts which client address may claim the id.
	// An empty host accepts any address.
	Host string `yaml:"host"`
}
