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

package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestChain(t *testing.T) {
	t.Run("With fail fast", func(t *testing.T) {
		var calls []string
		step := func(name string, err error) func() error {
			return func() error {
				calls = append(calls, name)
				return err
			}
		}

		err := New(WithFailFast()).
			Step("listen", step("listen", nil)).
			Step("link", step("link", errors.New("no servers"))).
			Step("serve", step("serve", nil)).
			Run()

		require.EqualError(t, err, "link: no servers")
		assert.Equal(t, []string{"listen", "link"}, calls)
	})
	t.Run("With run all", func(t *testing.T) {
		first := errors.New("first")
		second := errors.New("second")

		err := New(WithRunAll()).
			Step("a", func() error { return first }).
			Step("b", func() error { return nil }).
			Step("c", func() error { return second }).
			Run()

		require.Error(t, err)
		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
		assert.Len(t, multierr.Errors(err), 2)
	})
	t.Run("With context steps", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "value")

		var seen any
		err := New(WithContext(ctx)).
			ContextStep("read", func(ctx context.Context) error {
				seen = ctx.Value(key{})
				return nil
			}).
			Run()

		require.NoError(t, err)
		assert.Equal(t, "value", seen)
	})
	t.Run("With conditional steps", func(t *testing.T) {
		var called bool
		err := New().
			StepIf(false, "skipped", func() error { called = true; return errors.New("boom") }).
			Run()

		require.NoError(t, err)
		assert.False(t, called)
	})
}
