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

package errors

import (
	"errors"
	"strconv"
)

// Code is the integer form of an error, as carried in refusal signals
// and resolved to text for client replies.
type Code uint32

const (
	CodeOK Code = 0

	CodeAlreadyInUse  Code = 1001
	CodeWrongType     Code = 1002
	CodeNotConfigured Code = 1003

	CodeNoContact  Code = 2001
	CodeTimeout    Code = 2002
	CodeNodeFailed Code = 2003

	CodeUnknownCommand  Code = 3001
	CodeMissingArgument Code = 3002
	CodeBadArgumentType Code = 3003

	CodeIncompatibleVersion    Code = 4001
	CodeNodeRefused            Code = 4002
	CodeNodeShutdownInProgress Code = 4003
	CodeNodeAlreadyStarted     Code = 4004
	CodeInvalidLogLevel        Code = 4005
	CodeInvalidCategory        Code = 4006

	CodeInternal Code = 5000
)

var texts = map[Code]string{
	CodeOK:                     "Ok",
	CodeAlreadyInUse:           "Id already allocated by another node",
	CodeWrongType:              "Id is configured as another node type",
	CodeNotConfigured:          "No free node id found for this node type and host",
	CodeNoContact:              "No contact with the process (dead ?)",
	CodeTimeout:                "Time out talking to the node",
	CodeNodeFailed:             "Node failed during request",
	CodeUnknownCommand:         "Unknown command",
	CodeMissingArgument:        "Missing mandatory argument",
	CodeBadArgumentType:        "Argument has wrong type",
	CodeIncompatibleVersion:    "Incompatible version",
	CodeNodeRefused:            "Node refused the request",
	CodeNodeShutdownInProgress: "Node shutdown already in progress",
	CodeNodeAlreadyStarted:     "Node already started",
	CodeInvalidLogLevel:        "Invalid log level, must be 0-15",
	CodeInvalidCategory:        "Invalid event category",
	CodeInternal:               "Internal error",
}

var codes = []struct {
	err  error
	code Code
}{
	{ErrAlreadyInUse, CodeAlreadyInUse},
	{ErrWrongType, CodeWrongType},
	{ErrNotConfigured, CodeNotConfigured},
	{ErrNoContact, CodeNoContact},
	{ErrTimeout, CodeTimeout},
	{ErrNodeFailed, CodeNodeFailed},
	{ErrUnknownCommand, CodeUnknownCommand},
	{ErrMissingArgument, CodeMissingArgument},
	{ErrBadArgumentType, CodeBadArgumentType},
	{ErrIncompatibleVersion, CodeIncompatibleVersion},
	{ErrNodeRefused, CodeNodeRefused},
	{ErrNodeShutdownInProgress, CodeNodeShutdownInProgress},
	{ErrNodeAlreadyStarted, CodeNodeAlreadyStarted},
	{ErrInvalidLogLevel, CodeInvalidLogLevel},
	{ErrInvalidCategory, CodeInvalidCategory},
}

// Text returns the client-facing text of a code. Unknown codes resolve
// to a generic text that still carries the number.
func Text(code Code) string {
	if text, ok := texts[code]; ok {
		return text
	}
	return "Unknown error code " + strconv.FormatUint(uint64(code), 10)
}

// CodeOf maps an error to its code. A nil error is CodeOK and any error
// outside the taxonomy is CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, entry := range codes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}

// FromCode returns the sentinel error of a code, as received in a refusal
// signal. Codes without a sentinel map to ErrNodeRefused.
func FromCode(code Code) error {
	if code == CodeOK {
		return nil
	}
	for _, entry := range codes {
		if entry.code == code {
			return entry.err
		}
	}
	return ErrNodeRefused
}
