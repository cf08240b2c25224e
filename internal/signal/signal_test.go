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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/mgmd/errors"
)

func TestParseLogLevel(t *testing.T) {
	t.Run("With valid filters", func(t *testing.T) {
		level, err := ParseLogLevel("startup=5, ERROR=0 checkpoint=15")
		require.NoError(t, err)
		assert.Equal(t, 3, level.Len())
		assert.Equal(t, "STARTUP=5,CHECKPOINT=15,ERROR=0", level.String())

		threshold, ok := level.Get(CategoryStartup)
		require.True(t, ok)
		assert.EqualValues(t, 5, threshold)
		_, ok = level.Get(CategoryBackup)
		assert.False(t, ok)
	})

	t.Run("With invalid filters", func(t *testing.T) {
		_, err := ParseLogLevel("")
		require.ErrorIs(t, err, errors.ErrInvalidCategory)
		_, err = ParseLogLevel("BOGUS=3")
		require.ErrorIs(t, err, errors.ErrInvalidCategory)
		_, err = ParseLogLevel("STARTUP=16")
		require.ErrorIs(t, err, errors.ErrInvalidLogLevel)
		_, err = ParseLogLevel("STARTUP")
		require.ErrorIs(t, err, errors.ErrInvalidLogLevel)
		_, err = ParseLogLevel("STARTUP=x")
		require.ErrorIs(t, err, errors.ErrInvalidLogLevel)
	})
}

func TestAdmits(t *testing.T) {
	level, err := ParseLogLevel("STARTUP=5")
	require.NoError(t, err)

	for _, category := range Categories() {
		for severity := uint8(0); severity <= MaxLevel; severity++ {
			expected := category == CategoryStartup && severity >= 5
			assert.Equal(t, expected, level.Admits(category, severity), "%s/%d", category, severity)
		}
	}

	var empty LogLevel
	assert.True(t, empty.IsEmpty())
	assert.False(t, empty.Admits(CategoryError, MaxLevel))
}

func TestWiden(t *testing.T) {
	first, err := ParseLogLevel("STARTUP=5,ERROR=10")
	require.NoError(t, err)
	second, err := ParseLogLevel("STARTUP=7,BACKUP=2,ERROR=3")
	require.NoError(t, err)

	union := first.Widen(second)
	assert.Equal(t, "STARTUP=5,ERROR=3,BACKUP=2", union.String())
	assert.Equal(t, union, second.Widen(first))
	assert.Equal(t, first, first.Widen(LogLevel{}))

	for _, category := range Categories() {
		for severity := uint8(0); severity <= MaxLevel; severity++ {
			assert.Equal(t,
				first.Admits(category, severity) || second.Admits(category, severity),
				union.Admits(category, severity))
		}
	}

	union.Unset(CategoryError)
	_, ok := union.Get(CategoryError)
	assert.False(t, ok)
}

func TestCategory(t *testing.T) {
	category, err := ParseCategory(" nodeRestart ")
	require.NoError(t, err)
	assert.Equal(t, CategoryNodeRestart, category)
	assert.Equal(t, "UNKNOWN", Category(CategoryCount).String())
	assert.Len(t, Categories(), CategoryCount)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "StopReq", StopReq.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestCodec(t *testing.T) {
	codec := NewCodec()

	level, err := ParseLogLevel("STARTUP=5,ERROR=0")
	require.NoError(t, err)

	sig := NewEvent(3, CategoryError, 7, "disk full")
	sig.Time = time.Date(2024, time.March, 9, 14, 30, 5, 123456789, time.UTC)
	sig.LogLevel = level
	sig.Code = errors.CodeNodeRefused
	sig.Abort = true

	data, err := codec.Encode(sig)
	require.NoError(t, err)

	actual, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EventReport, actual.Kind)
	assert.EqualValues(t, 3, actual.Node)
	assert.Equal(t, CategoryError, actual.Category)
	assert.EqualValues(t, 7, actual.Severity)
	assert.Equal(t, "disk full", actual.Text)
	assert.True(t, actual.Abort)
	assert.Equal(t, level, actual.LogLevel)
	assert.True(t, sig.Time.Equal(actual.Time), "got %s", actual.Time)
	require.ErrorIs(t, actual.Err(), errors.ErrNodeRefused)

	_, err = codec.Encode(nil)
	require.ErrorIs(t, err, ErrNilSignal)

	_, err = codec.Decode([]byte{0xff, 0x00})
	require.ErrorIs(t, err, ErrDecodeFailed)
}
