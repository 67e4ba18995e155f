// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package logger is the simulator-wide logger. It writes through zap, stamps every line with
// the simulated time once a dispatcher is installed, and keeps the interactive prompt intact.
package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the log-level for logging what happens in the simulation as a whole, or for an
// individual node.
type Level int8

const (
	MicroLevel   Level = 7
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	FatalLevel   Level = -1
	OffLevel     Level = -2
	DefaultLevel       = InfoLevel
)

// StdoutCallback is notified after log output was written, so that a console can redraw its
// prompt.
type StdoutCallback interface {
	OnStdout()
}

var (
	zaplogger       *zap.Logger
	currentLevel    = DefaultLevel
	isLogToTerminal bool
	cbStdout        StdoutCallback
	simTimeFunc     func() uint64
)

func init() {
	if o, err := os.Stdout.Stat(); err == nil && o.Mode()&os.ModeCharDevice != 0 {
		isLogToTerminal = true
	}
	if err := SetOutput([]string{"stderr"}); err != nil {
		panic(err)
	}
}

func newZapConfig(outputs []string) zap.Config {
	return zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:         "console",
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:     "time",
			LevelKey:    "level",
			MessageKey:  "message",
			EncodeTime:  encodeTime,
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		},
	}
}

// encodeTime writes the simulated time when a source is installed, else the wall clock.
func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	if f := simTimeFunc; f != nil {
		enc.AppendString(formatSimTime(f()))
		return
	}
	zapcore.ISO8601TimeEncoder(t, enc)
}

func formatSimTime(us uint64) string {
	return fmt.Sprintf("t=%d.%06d", us/1000000, us%1000000)
}

func toZapLevel(level Level) zapcore.Level {
	switch {
	case level >= DebugLevel:
		return zapcore.DebugLevel
	case level >= NoteLevel:
		return zapcore.InfoLevel
	case level == WarnLevel:
		return zapcore.WarnLevel
	case level == ErrorLevel:
		return zapcore.ErrorLevel
	case level == PanicLevel:
		return zapcore.PanicLevel
	default:
		return zapcore.FatalLevel
	}
}

func SetLevel(lv Level) {
	currentLevel = lv
}

func GetLevel() Level {
	return currentLevel
}

// SetStdoutCallback sets a callback that is called after log content was written.
func SetStdoutCallback(cb StdoutCallback) {
	cbStdout = cb
}

// SetSimTimeSource installs the function that supplies the current simulated time (us) shown
// in every log line. A nil source falls back to wall-clock time.
func SetSimTimeSource(f func() uint64) {
	simTimeFunc = f
}

// SetOutput replaces the log destinations, e.g. []string{"stderr", "mmwns.log"}.
func SetOutput(outputs []string) error {
	newLogger, err := newZapConfig(outputs).Build()
	if err != nil {
		return err
	}
	if zaplogger != nil {
		_ = zaplogger.Sync()
	}
	zaplogger = newLogger
	return nil
}

// enabled reports whether a message at level passes the given threshold. Panics and fatal
// errors always pass.
func enabled(level, threshold Level) bool {
	return level <= threshold || level <= PanicLevel
}

// toConsole clears the prompt line before f writes and lets the console redraw it after.
func toConsole(f func()) {
	if isLogToTerminal {
		_, _ = fmt.Fprint(os.Stdout, "\033[2K\r")
	}
	f()
	if isLogToTerminal && cbStdout != nil {
		cbStdout.OnStdout()
	}
}

func emit(level Level, msg string) {
	toConsole(func() {
		zaplogger.Log(toZapLevel(level), msg)
	})
}

func Logf(level Level, format string, args []interface{}) {
	if !enabled(level, currentLevel) {
		return
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	emit(level, format)
}

func Tracef(format string, args ...interface{}) {
	Logf(TraceLevel, format, args)
}

func Debugf(format string, args ...interface{}) {
	Logf(DebugLevel, format, args)
}

func Infof(format string, args ...interface{}) {
	Logf(InfoLevel, format, args)
}

func Warnf(format string, args ...interface{}) {
	Logf(WarnLevel, format, args)
}

func Errorf(format string, args ...interface{}) {
	Logf(ErrorLevel, format, args)
}

func Panicf(format string, args ...interface{}) {
	Logf(PanicLevel, format, args)
}

func Fatalf(format string, args ...interface{}) {
	Logf(FatalLevel, format, args)
}

// PanicIfError panics with err, prefixed by args when given.
func PanicIfError(err error, args ...interface{}) {
	if err != nil {
		Panicf("%s", errorMessage(err, args))
	}
}

// FatalIfError exits the program with err, prefixed by args when given.
func FatalIfError(err error, args ...interface{}) {
	if err != nil {
		Fatalf("%s", errorMessage(err, args))
	}
}

func errorMessage(err error, args []interface{}) string {
	if len(args) == 0 {
		return fmt.Sprintf("%+v", err)
	}
	return fmt.Sprintf("%s: %v", fmt.Sprint(args...), err)
}

// assertLogger turns a failed assertion into a panic through the log.
type assertLogger struct{}

func (assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.Nil(assertLogger{}, object, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}

func AssertFalse(value bool, msgAndArgs ...interface{}) bool {
	return assert.False(assertLogger{}, value, msgAndArgs...)
}
