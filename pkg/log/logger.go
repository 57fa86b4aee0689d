package log

import "fmt"

// Logger is the sink handed to components which must not reach for
// the package level functions directly.
type Logger interface {
	Debug(format string, a ...interface{})
	Info(format string, a ...interface{})
	Warn(format string, a ...interface{})
	Error(format string, a ...interface{})
}

// Std routes through the package level function variables, so any
// overloads installed by tests still apply.
func Std() Logger {
	return std{}
}

// WithPrefix wraps l so every message is prefixed with "[prefix] ".
func WithPrefix(l Logger, prefix string) Logger {
	return prefixed{l: l, prefix: prefix}
}

type std struct{}

func (s std) Debug(format string, a ...interface{}) { Debug(format, a...) }
func (s std) Info(format string, a ...interface{})  { Info(format, a...) }
func (s std) Warn(format string, a ...interface{})  { Warn(format, a...) }
func (s std) Error(format string, a ...interface{}) { Error(format, a...) }

type prefixed struct {
	l      Logger
	prefix string
}

func (p prefixed) wrap(format string) string {
	return fmt.Sprintf("[%s] %s", p.prefix, format)
}

func (p prefixed) Debug(format string, a ...interface{}) { p.l.Debug(p.wrap(format), a...) }
func (p prefixed) Info(format string, a ...interface{})  { p.l.Info(p.wrap(format), a...) }
func (p prefixed) Warn(format string, a ...interface{})  { p.l.Warn(p.wrap(format), a...) }
func (p prefixed) Error(format string, a ...interface{}) { p.l.Error(p.wrap(format), a...) }

// Nop discards everything.
func Nop() Logger { return nop{} }

type nop struct{}

func (nop) Debug(string, ...interface{}) {}
func (nop) Info(string, ...interface{})  {}
func (nop) Warn(string, ...interface{})  {}
func (nop) Error(string, ...interface{}) {}
