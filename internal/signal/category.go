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
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"unicode"

	"github.com/tochemey/mgmd/errors"
)

// MaxLevel is the highest event severity and log level
const MaxLevel = 15

// Category is an event category
type Category uint8

const (
	CategoryStartup Category = iota
	CategoryShutdown
	CategoryStatistic
	CategoryCheckpoint
	CategoryNodeRestart
	CategoryConnection
	CategoryInfo
	CategoryWarning
	CategoryError
	CategoryCongestion
	CategoryDebug
	CategoryBackup

	// CategoryCount is the number of known categories
	CategoryCount = iota
)

var categoryNames = [CategoryCount]string{
	"STARTUP",
	"SHUTDOWN",
	"STATISTIC",
	"CHECKPOINT",
	"NODERESTART",
	"CONNECTION",
	"INFO",
	"WARNING",
	"ERROR",
	"CONGESTION",
	"DEBUG",
	"BACKUP",
}

// Categories returns every known category in order
func Categories() []Category {
	out := make([]Category, CategoryCount)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// String returns the category name
func (c Category) String() string {
	if c.Valid() {
		return categoryNames[c]
	}
	return "UNKNOWN"
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return int(c) < CategoryCount
}

// ParseCategory resolves a category from its case-insensitive name
func ParseCategory(name string) (Category, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, candidate := range categoryNames {
		if candidate == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("category %q: %w", name, errors.ErrInvalidCategory)
}

// ParseLevel parses a log level in range [0, MaxLevel]
func ParseLevel(value string) (uint8, error) {
	level, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || level < 0 || level > MaxLevel {
		return 0, fmt.Errorf("level %q: %w", value, errors.ErrInvalidLogLevel)
	}
	return uint8(level), nil
}

// LogLevel holds, per category, the minimum severity an event must
// have to be reported. A category that is not defined admits nothing.
// The zero value defines no category.
type LogLevel struct {
	Levels  [CategoryCount]uint8 `cbor:"1,keyasint"`
	Defined uint16               `cbor:"2,keyasint"`
}

// ParseLogLevel parses a filter of the form CATEGORY=LEVEL[,CATEGORY=LEVEL]*.
// Entries may also be separated by spaces.
func ParseLogLevel(spec string) (LogLevel, error) {
	var level LogLevel
	entries := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(entries) == 0 {
		return level, fmt.Errorf("empty filter: %w", errors.ErrInvalidCategory)
	}

	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return LogLevel{}, fmt.Errorf("filter entry %q has no level: %w", entry, errors.ErrInvalidLogLevel)
		}
		category, err := ParseCategory(name)
		if err != nil {
			return LogLevel{}, err
		}
		threshold, err := ParseLevel(value)
		if err != nil {
			return LogLevel{}, err
		}
		level.Set(category, threshold)
	}
	return level, nil
}

// Set defines the minimum severity of the given category.
// Levels above MaxLevel are capped.
func (l *LogLevel) Set(category Category, level uint8) {
	if !category.Valid() {
		return
	}
	l.Levels[category] = min(level, MaxLevel)
	l.Defined |= 1 << category
}

// Unset removes the given category
func (l *LogLevel) Unset(category Category) {
	if !category.Valid() {
		return
	}
	l.Levels[category] = 0
	l.Defined &^= 1 << category
}

// Get returns the minimum severity of the given category and whether
// the category is defined
func (l LogLevel) Get(category Category) (uint8, bool) {
	if !category.Valid() || l.Defined&(1<<category) == 0 {
		return 0, false
	}
	return l.Levels[category], true
}

// Admits reports whether an event of the given category and severity
// passes the filter
func (l LogLevel) Admits(category Category, severity uint8) bool {
	level, ok := l.Get(category)
	return ok && severity >= level
}

// Widen returns the union of l and other: for every category the lowest
// minimum among the two, so that the result admits what either admits.
func (l LogLevel) Widen(other LogLevel) LogLevel {
	out := l
	for _, category := range Categories() {
		level, ok := other.Get(category)
		if !ok {
			continue
		}
		if current, defined := out.Get(category); !defined || level < current {
			out.Set(category, level)
		}
	}
	return out
}

// IsEmpty reports whether no category is defined
func (l LogLevel) IsEmpty() bool {
	return l.Defined == 0
}

// Len returns the number of defined categories
func (l LogLevel) Len() int {
	return bits.OnesCount16(l.Defined)
}

// String returns the filter form of the log level
func (l LogLevel) String() string {
	var sb strings.Builder
	for _, category := range Categories() {
		level, ok := l.Get(category)
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(category.String())
		sb.WriteByte('=')
		sb.WriteString(strconv.Itoa(int(level)))
	}
	return sb.String()
}
