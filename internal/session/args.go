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
	"fmt"
	"slices"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/mgmd/config"
	gerrors "github.com/tochemey/mgmd/errors"
)

// ArgType is the declared type of a command argument
type ArgType int

const (
	ArgString ArgType = iota
	ArgInt
	ArgBool
)

// String returns the type name
func (t ArgType) String() string {
	switch t {
	case ArgInt:
		return "int"
	case ArgBool:
		return "bool"
	default:
		return "string"
	}
}

// ArgSpec declares one argument of a command
type ArgSpec struct {
	Name      string
	Type      ArgType
	Mandatory bool
}

// Args holds the typed arguments of a request
type Args struct {
	values map[string]any
}

func parseArgs(specs []ArgSpec, raw map[string]string) (Args, error) {
	args := Args{values: make(map[string]any, len(raw))}
	for key := range raw {
		if !slices.ContainsFunc(specs, func(spec ArgSpec) bool { return spec.Name == key }) {
			return args, fmt.Errorf("unknown argument %q: %w", key, gerrors.ErrBadArgumentType)
		}
	}

	for _, spec := range specs {
		value, ok := raw[spec.Name]
		if !ok {
			if spec.Mandatory {
				return args, fmt.Errorf("argument %q: %w", spec.Name, gerrors.ErrMissingArgument)
			}
			continue
		}

		switch spec.Type {
		case ArgInt:
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return args, fmt.Errorf("argument %q expects %s: %w", spec.Name, spec.Type, gerrors.ErrBadArgumentType)
			}
			args.values[spec.Name] = i
		case ArgBool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return args, fmt.Errorf("argument %q expects %s: %w", spec.Name, spec.Type, gerrors.ErrBadArgumentType)
			}
			args.values[spec.Name] = b
		default:
			args.values[spec.Name] = value
		}
	}
	return args, nil
}

// String returns a string argument
func (a Args) String(name string) (string, bool) {
	v, ok := a.values[name].(string)
	return v, ok
}

// Int returns an int argument
func (a Args) Int(name string) (int64, bool) {
	v, ok := a.values[name].(int64)
	return v, ok
}

// Bool returns a bool argument, false when absent
func (a Args) Bool(name string) bool {
	v, _ := a.values[name].(bool)
	return v
}

// NodeIDs parses a node list argument ("1 2", "1,2"). Ids are
// deduplicated and returned ascending. An absent or empty list
// returns nil.
func (a Args) NodeIDs(name string) ([]config.NodeID, error) {
	value, _ := a.String(name)
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, nil
	}

	set := mapset.NewThreadUnsafeSet[config.NodeID]()
	for _, f := range fields {
		id, err := strconv.ParseUint(f, 10, 32)
		if err != nil || id == 0 || id > config.MaxNodes {
			return nil, fmt.Errorf("node id %q: %w", f, gerrors.ErrBadArgumentType)
		}
		set.Add(config.NodeID(id))
	}

	ids := set.ToSlice()
	slices.Sort(ids)
	return ids, nil
}
