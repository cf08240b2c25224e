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

package session

import (
	"context"
	"strings"
)

// Handler serves one command. It never returns a nil reply; failures are
// reported through the reply's result line.
type Handler func(ctx context.Context, s *Session, args Args) *Reply

// Command is an entry of the command table
type Command struct {
	Name    string
	Args    []ArgSpec
	Handler Handler
}

// unknownCommand names commands missing from the table in replies to
// oversized requests and in metrics
const unknownCommand = "unknown"

var nodeControlArgs = []ArgSpec{
	{Name: "node", Type: ArgString},
	{Name: "abort", Type: ArgBool},
}

var logLevelArgs = []ArgSpec{
	{Name: "node", Type: ArgInt, Mandatory: true},
	{Name: "category", Type: ArgString, Mandatory: true},
	{Name: "level", Type: ArgInt, Mandatory: true},
}

var commandTable = []*Command{
	{
		Name: "get nodeid",
		Args: []ArgSpec{
			{Name: "version", Type: ArgInt, Mandatory: true},
			{Name: "nodetype", Type: ArgString, Mandatory: true},
			{Name: "nodeid", Type: ArgInt},
			{Name: "name", Type: ArgString},
		},
		Handler: getNodeID,
	},
	{
		Name:    "start",
		Args:    []ArgSpec{{Name: "node", Type: ArgString}},
		Handler: start,
	},
	{
		Name:    "stop",
		Args:    nodeControlArgs,
		Handler: stop,
	},
	{
		Name:    "stop all",
		Args:    []ArgSpec{{Name: "abort", Type: ArgBool}},
		Handler: stopAll,
	},
	{
		Name: "restart",
		Args: append(append([]ArgSpec(nil), nodeControlArgs...),
			ArgSpec{Name: "initial", Type: ArgBool},
			ArgSpec{Name: "nostart", Type: ArgBool},
		),
		Handler: restart,
	},
	{
		Name: "listen event",
		Args: []ArgSpec{
			{Name: "filter", Type: ArgString, Mandatory: true},
			{Name: "parsable", Type: ArgBool},
		},
		Handler: listenEvent,
	},
	{
		Name:    "set cluster loglevel",
		Args:    logLevelArgs,
		Handler: setClusterLogLevel,
	},
	{
		Name:    "set loglevel",
		Args:    logLevelArgs,
		Handler: setLogLevel,
	},
	{Name: "get cluster loglevel", Handler: getClusterLogLevel},
	{
		Name:    "get status",
		Args:    []ArgSpec{{Name: "types", Type: ArgString}},
		Handler: getStatus,
	},
	{Name: "get version", Handler: getVersion},
	{Name: "check connection", Handler: checkConnection},
	{Name: "bye", Handler: bye},
}

// Commands returns the names of the supported commands
func Commands() []string {
	names := make([]string, 0, len(commandTable))
	for _, cmd := range commandTable {
		names = append(names, cmd.Name)
	}
	return names
}

func lookup(name string) (*Command, bool) {
	name = strings.ToLower(name)
	for _, cmd := range commandTable {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return nil, false
}
