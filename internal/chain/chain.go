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

// Package chain runs the ordered steps of a start or stop sequence and
// collects their errors.
package chain

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Chain runs named steps in insertion order. A fail-fast chain skips
// every step after the first failure; otherwise all steps run and their
// errors are combined.
type Chain struct {
	failFast bool
	ctx      context.Context
	err      error
}

// Option configures a Chain
type Option func(*Chain)

// WithFailFast stops the chain at the first failing step
func WithFailFast() Option {
	return func(c *Chain) { c.failFast = true }
}

// WithRunAll runs every step regardless of failures
func WithRunAll() Option {
	return func(c *Chain) { c.failFast = false }
}

// WithContext sets the context handed to context steps
func WithContext(ctx context.Context) Option {
	return func(c *Chain) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// New creates an empty Chain
func New(opts ...Option) *Chain {
	c := &Chain{ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step runs fn unless the chain already failed fast. A failure is
// reported as "<name>: <err>".
func (c *Chain) Step(name string, fn func() error) *Chain {
	if c.failFast && c.err != nil {
		return c
	}
	if err := fn(); err != nil {
		c.err = multierr.Append(c.err, fmt.Errorf("%s: %w", name, err))
	}
	return c
}

// ContextStep is Step for functions taking the chain context
func (c *Chain) ContextStep(name string, fn func(ctx context.Context) error) *Chain {
	return c.Step(name, func() error { return fn(c.ctx) })
}

// StepIf adds the step only when condition holds
func (c *Chain) StepIf(condition bool, name string, fn func() error) *Chain {
	if !condition {
		return c
	}
	return c.Step(name, fn)
}

// Run returns the collected errors
func (c *Chain) Run() error {
	return c.err
}
