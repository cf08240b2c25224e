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
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrNilSignal is returned when encoding a nil signal
	ErrNilSignal = errors.New("signal: nil signal")
	// ErrEncodeFailed wraps CBOR encoding failures
	ErrEncodeFailed = errors.New("signal: failed to encode")
	// ErrDecodeFailed wraps CBOR decoding failures
	ErrDecodeFailed = errors.New("signal: failed to decode")

	encOpts = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	decOpts = cbor.DecOptions{
		MaxNestedLevels: 16,
		IndefLength:     cbor.IndefLengthForbidden,
		UTF8:            cbor.UTF8DecodeInvalid,
	}
)

// Codec encodes signals with CBOR for carriage over a member link.
// It is stateless and safe for concurrent use.
type Codec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// NewCodec creates a Codec
func NewCodec() *Codec {
	encMode, _ := encOpts.EncMode()
	decMode, _ := decOpts.DecMode()
	return &Codec{encMode: encMode, decMode: decMode}
}

// Encode returns the CBOR form of the signal
func (c *Codec) Encode(sig *Signal) ([]byte, error) {
	if sig == nil {
		return nil, ErrNilSignal
	}
	data, err := c.encMode.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return data, nil
}

// Decode parses a signal produced by Encode
func (c *Codec) Decode(data []byte) (*Signal, error) {
	sig := new(Signal)
	if err := c.decMode.Unmarshal(data, sig); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return sig, nil
}
