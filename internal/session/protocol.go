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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	gerrors "github.com/tochemey/mgmd/errors"
)

const (
	replySuffix = " reply"
	resultKey   = "result"

	// MaxLineLength bounds a request line, line ending included
	MaxLineLength = 4096
	// MaxArguments bounds the distinct arguments of a request
	MaxArguments = 64
)

// ErrRequestTooLarge is returned by ReadRequest when a line or the
// argument count exceeds its bound. The rest of the request is not read.
var ErrRequestTooLarge = fmt.Errorf("request exceeds %d bytes per line or %d arguments: %w",
	MaxLineLength, MaxArguments, gerrors.ErrInternal)

// Request is a single client command: the command-name line followed by
// "key: value" lines and terminated by a blank line.
type Request struct {
	Command string
	Args    map[string]string
	// malformed holds the first argument line that is not "key: value"
	malformed string
}

// ReadRequest reads the next request. Blank lines before the command
// name are skipped. It returns io.EOF when the peer closed the
// connection between requests and io.ErrUnexpectedEOF when it closed
// in the middle of one. On ErrRequestTooLarge the request read so far,
// if any, is returned with the error.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	var req *Request
	for {
		line, err := readLine(r)
		if errors.Is(err, ErrRequestTooLarge) {
			return req, err
		}
		if err != nil && (line == "" || err != io.EOF) {
			if req != nil && err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case req == nil && strings.TrimSpace(line) == "":
		case req == nil:
			req = &Request{
				Command: strings.Join(strings.Fields(line), " "),
				Args:    make(map[string]string),
			}
		case strings.TrimSpace(line) == "":
			return req, nil
		default:
			key, value, ok := strings.Cut(line, ":")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				if req.malformed == "" {
					req.malformed = line
				}
				break
			}
			if _, seen := req.Args[key]; !seen && len(req.Args) >= MaxArguments {
				return req, ErrRequestTooLarge
			}
			req.Args[key] = strings.TrimSpace(value)
		}

		if err == io.EOF {
			if req != nil {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, io.EOF
		}
	}
}

// readLine returns the next line without buffering more than
// MaxLineLength bytes, whatever the size of r
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		chunk, err := r.ReadSlice('\n')
		if sb.Len()+len(chunk) > MaxLineLength {
			return "", ErrRequestTooLarge
		}
		sb.Write(chunk)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return sb.String(), err
		}
	}
}

type field struct {
	key   string
	value string
}

// Reply is the answer to a Request: a "<command> reply" status line,
// "key: value" lines and a terminating blank line.
type Reply struct {
	command string
	fields  []field
	result  string
}

// NewReply creates an empty reply to the given command
func NewReply(command string) *Reply {
	return &Reply{command: command}
}

// Add appends a "key: value" line
func (r *Reply) Add(key string, value any) *Reply {
	r.fields = append(r.fields, field{key: key, value: fmt.Sprint(value)})
	return r
}

// Result appends the "result" line carrying the text of err's code.
// A nil error renders as Ok.
func (r *Reply) Result(err error) *Reply {
	r.result = gerrors.Text(gerrors.CodeOf(err))
	return r.Add(resultKey, r.result)
}

// ResultText returns the text of the "result" line, if any
func (r *Reply) ResultText() string {
	return r.result
}

// Bytes renders the reply in wire form
func (r *Reply) Bytes() []byte {
	var sb strings.Builder
	sb.WriteString(r.command)
	sb.WriteString(replySuffix)
	sb.WriteByte('\n')
	for _, f := range r.fields {
		sb.WriteString(f.key)
		sb.WriteString(": ")
		sb.WriteString(f.value)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

// WriteTo writes the reply to w
func (r *Reply) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
