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

// Package tcp accepts the management client connections and hands each
// one to a request handler on its own goroutine.
package tcp

import (
	"errors"
	"fmt"
	"net"

	"github.com/hashicorp/go-sockaddr"
)

var (
	// ErrNotListening is returned by Serve when Listen was not called
	ErrNotListening = errors.New("tcp: server is not listening")
	// ErrNoHandler is returned by Serve when no request handler is set
	ErrNoHandler = errors.New("tcp: no request handler set")
)

// AdvertisedIP returns the ip a client should dial to reach a listener
// bound to address. A wildcard host is replaced by the first private
// interface address, or a public one when the host has none.
func AdvertisedIP(address string) (string, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", host)
		if err != nil {
			return "", fmt.Errorf("resolving host %q: %w", host, err)
		}
		ip = resolved.IP
	}

	if !ip.IsUnspecified() {
		return ip.String(), nil
	}

	for _, lookup := range []func() (string, error){sockaddr.GetPrivateIP, sockaddr.GetPublicIP} {
		candidate, err := lookup()
		if err != nil {
			return "", fmt.Errorf("looking up interface addresses: %w", err)
		}
		if parsed := net.ParseIP(candidate); parsed != nil {
			return parsed.String(), nil
		}
	}
	return "", errors.New("no interface address to advertise")
}
