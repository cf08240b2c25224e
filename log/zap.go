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

package log

import (
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// DiscardLogger drops every entry
	DiscardLogger Logger = discard{}
	// DefaultLogger writes info entries and above to os.Stdout
	DefaultLogger = NewZap(InfoLevel, os.Stdout)
	// DebugLogger writes every entry to os.Stdout
	DebugLogger = NewZap(DebugLevel, os.Stdout)
)

// levels maps each Level to its zap counterpart
var levels = map[Level]zapcore.Level{
	DebugLevel:   zapcore.DebugLevel,
	InfoLevel:    zapcore.InfoLevel,
	WarningLevel: zapcore.WarnLevel,
	ErrorLevel:   zapcore.ErrorLevel,
	PanicLevel:   zapcore.PanicLevel,
	FatalLevel:   zapcore.FatalLevel,
}

// Zap is a Logger writing JSON entries through zap
type Zap struct {
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	writers []io.Writer
}

var _ Logger = (*Zap)(nil)

// NewZap returns a Zap writing entries at the given level and above to
// every writer, or to os.Stdout when none is given
func NewZap(level Level, writers ...io.Writer) *Zap {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}

	sinks := make([]zapcore.WriteSyncer, len(writers))
	for i, w := range writers {
		sinks[i] = zapcore.AddSync(w)
	}

	threshold, ok := levels[level]
	if !ok {
		threshold = zapcore.DebugLevel
	}

	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339Nano),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})

	base := zap.New(
		zapcore.NewCore(encoder, zap.CombineWriteSyncers(sinks...), threshold),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return &Zap{base: base, sugar: base.Sugar(), writers: writers}
}

func (z *Zap) Debug(v ...any)                 { z.sugar.Debug(v...) }
func (z *Zap) Debugf(format string, v ...any) { z.sugar.Debugf(format, v...) }
func (z *Zap) Info(v ...any)                  { z.sugar.Info(v...) }
func (z *Zap) Infof(format string, v ...any)  { z.sugar.Infof(format, v...) }
func (z *Zap) Warn(v ...any)                  { z.sugar.Warn(v...) }
func (z *Zap) Warnf(format string, v ...any)  { z.sugar.Warnf(format, v...) }
func (z *Zap) Error(v ...any)                 { z.sugar.Error(v...) }
func (z *Zap) Errorf(format string, v ...any) { z.sugar.Errorf(format, v...) }
func (z *Zap) Fatal(v ...any)                 { z.sugar.Fatal(v...) }
func (z *Zap) Fatalf(format string, v ...any) { z.sugar.Fatalf(format, v...) }
func (z *Zap) Panic(v ...any)                 { z.sugar.Panic(v...) }
func (z *Zap) Panicf(format string, v ...any) { z.sugar.Panicf(format, v...) }

// With attaches the key-value pairs to every entry of the returned
// logger. Keys that are not strings are skipped together with their
// value and a trailing value without a key is kept under "_".
func (z *Zap) With(keyValues ...any) Logger {
	var fields []zap.Field
	for len(keyValues) > 0 {
		if len(keyValues) == 1 {
			fields = append(fields, zap.Any("_", keyValues[0]))
			break
		}
		if key, ok := keyValues[0].(string); ok {
			fields = append(fields, zap.Any(key, keyValues[1]))
		}
		keyValues = keyValues[2:]
	}

	if len(fields) == 0 {
		return z
	}
	child := z.base.With(fields...)
	return &Zap{base: child, sugar: child.Sugar(), writers: z.writers}
}

// Enabled reports whether entries at level are written
func (z *Zap) Enabled(level Level) bool {
	zl, ok := levels[level]
	return ok && z.base.Core().Enabled(zl)
}

// LogLevel returns the minimum level written
func (z *Zap) LogLevel() Level {
	current := z.base.Level()
	for level, zl := range levels {
		if zl == current {
			return level
		}
	}
	return InvalidLevel
}

// Flush syncs the file outputs. The standard streams are left alone
// since syncing a terminal fails on most platforms.
func (z *Zap) Flush() error {
	var err error
	for _, w := range z.writers {
		if f, ok := w.(*os.File); ok && f != os.Stdout && f != os.Stderr {
			err = multierr.Append(err, f.Sync())
		}
	}
	return err
}
