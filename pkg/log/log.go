// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package log

import "fmt"

// Level orders log severities from most to least chatty.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// Field is one piece of structured context attached to a log call, e.g.
// {"addr", 0x1f00}.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the pluggable sink every engine/session call site writes
// through. Embedders implement this to forward into whatever structured
// logging library their application already uses.
type Logger interface {
	Log(level Level, msg string, fields ...Field)
}

type defaultLogger struct{}

func (l *defaultLogger) Log(level Level, msg string, fields ...Field) {}

var (
	defaultLoggerImpl         = &defaultLogger{}
	logger            Logger  = defaultLoggerImpl
	minLevel          Level   = Warn
)

// SetLogger installs impl as the package-wide sink. Passing nil restores
// the default no-op logger.
func SetLogger(impl Logger) {
	if impl == nil {
		logger = defaultLoggerImpl
	} else {
		logger = impl
	}
}

// SetLevel sets the minimum level that reaches the installed Logger.
func SetLevel(l Level) {
	minLevel = l
}

// L logs msg at level through the installed Logger, if level clears the
// configured minimum.
func L(level Level, msg string, fields ...Field) {
	if level < minLevel {
		return
	}
	logger.Log(level, msg, fields...)
}

// writerLogger is a simple Logger that formats to any io.Writer-like
// target via fmt, with no dependency on a structured logging library.
type writerLogger struct {
	w interface{ Write([]byte) (int, error) }
}

// NewWriterLogger returns a Logger that renders each call as one line of
// text to w.
func NewWriterLogger(w interface{ Write([]byte) (int, error) }) Logger {
	return &writerLogger{w: w}
}

func (l *writerLogger) Log(level Level, msg string, fields ...Field) {
	line := fmt.Sprintf("[%s] %s", levelName(level), msg)
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	line += "\n"
	_, _ = l.w.Write([]byte(line))
}

func levelName(l Level) string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "?"
	}
}
