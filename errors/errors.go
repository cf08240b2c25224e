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

// Package errors defines the sentinel errors returned by the management
// server and the integer error-code registry whose texts are written to
// clients in "result:" reply lines.
package errors

import "errors"

// Allocation errors are returned by the node registry.
var (
	// ErrAlreadyInUse is returned when the requested node id is reserved by another session.
	ErrAlreadyInUse = errors.New("node id already in use")
	// ErrWrongType is returned when the requested node id is configured with another node type.
	ErrWrongType = errors.New("node id configured with another node type")
	// ErrNotConfigured is returned when no configured node id matches the request.
	ErrNotConfigured = errors.New("node id not configured")
)

// Transport errors are returned by the signal transport.
var (
	// ErrNoContact is returned when the link to the target node is down.
	ErrNoContact = errors.New("no contact with node")
	// ErrTimeout is returned when no matching reply arrived before the deadline.
	ErrTimeout = errors.New("timed out waiting for node reply")
	// ErrNodeFailed is returned when the target node disconnected while a reply was awaited.
	ErrNodeFailed = errors.New("node failed while awaiting reply")
	// ErrInvalidTimeout is returned when a timeout value is less than or equal to zero.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Protocol errors abort the offending command only.
var (
	// ErrUnknownCommand is returned when the command name is not in the command table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMissingArgument is returned when a mandatory argument is absent.
	ErrMissingArgument = errors.New("missing argument")
	// ErrBadArgumentType is returned when an argument value does not parse as its declared type.
	ErrBadArgumentType = errors.New("bad argument type")
)

var (
	// ErrInternal is logged and surfaced generically to clients.
	ErrInternal = errors.New("internal error")
	// ErrIncompatibleVersion is returned when a client version is below the configured minimum.
	ErrIncompatibleVersion = errors.New("incompatible version")
	// ErrNodeRefused is returned when a node refused an order with an unmapped error code.
	ErrNodeRefused = errors.New("node refused the request")
	// ErrNodeShutdownInProgress is returned when a node is already shutting down.
	ErrNodeShutdownInProgress = errors.New("node shutdown in progress")
	// ErrNodeAlreadyStarted is returned when a start order targets a running node.
	ErrNodeAlreadyStarted = errors.New("node already started")
	// ErrInvalidLogLevel is returned when a log level is outside 0..15.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidCategory is returned when an event category name is unknown.
	ErrInvalidCategory = errors.New("invalid event category")
	// ErrServerNotStarted is returned when operating on a server that has not started.
	ErrServerNotStarted = errors.New("server is not started")
	// ErrServerAlreadyStarted is returned when starting a server twice.
	ErrServerAlreadyStarted = errors.New("server has already started")
)

// IsAllocation reports whether err is an allocation error.
func IsAllocation(err error) bool {
	return errors.Is(err, ErrAlreadyInUse) ||
		errors.Is(err, ErrWrongType) ||
		errors.Is(err, ErrNotConfigured)
}

// IsTransport reports whether err is a signal transport error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrNoContact) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNodeFailed)
}

// IsProtocol reports whether err is a client protocol error.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrMissingArgument) ||
		errors.Is(err, ErrBadArgumentType)
}
