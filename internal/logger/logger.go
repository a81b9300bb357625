// Package logger is a small structured-logging facade over logrus,
// shaped after the entry/level chain this codebase's components expect:
// construct an Entry, decorate it with fields and errors, then Log it.
// Components take a FuncLog closure instead of reaching for a package
// global, so the logger instance can be swapped (tests, reconfigure on
// SIGHUP) without touching call sites.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus's level ordering so callers never import logrus
// directly.
type Level uint32

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

func (l Level) logrus() logrus.Level {
	return logrus.Level(l)
}

// Logger builds log Entry values at a given level.
type Logger interface {
	Entry(level Level, message string) Entry
	SetLevel(level Level)
	SetOutput(w io.Writer)
}

// Entry is a single log record under construction.
type Entry interface {
	FieldAdd(key string, value interface{}) Entry
	ErrorAdd(err error) Entry
	// Check reports whether this entry's level is at or above
	// noErrLevel; callers use it to decide whether a caller-supplied
	// error should also be surfaced as a returned failure.
	Check(noErrLevel Level) bool
	Log()
}

// FuncLog is injected into components instead of a package-level
// logger so the active Logger can be swapped (e.g. after a config
// reload) without mutating shared global state.
type FuncLog func() Logger

type impl struct {
	log *logrus.Logger
}

// New returns a Logger writing JSON-formatted entries to w at the given
// level, matching the default sink used by this repository's CLI
// bootstrap (stdout) unless overridden by config.
func New(w io.Writer, level Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level.logrus())
	l.SetFormatter(&logrus.JSONFormatter{})
	return &impl{log: l}
}

// Default returns a Logger writing to os.Stderr at InfoLevel.
func Default() Logger {
	return New(os.Stderr, InfoLevel)
}

func (i *impl) Entry(level Level, message string) Entry {
	return &entryImpl{
		entry:   logrus.NewEntry(i.log),
		level:   level,
		message: message,
	}
}

func (i *impl) SetLevel(level Level) {
	i.log.SetLevel(level.logrus())
}

func (i *impl) SetOutput(w io.Writer) {
	i.log.SetOutput(w)
}

type entryImpl struct {
	entry   *logrus.Entry
	level   Level
	message string
}

func (e *entryImpl) FieldAdd(key string, value interface{}) Entry {
	e.entry = e.entry.WithField(key, value)
	return e
}

func (e *entryImpl) ErrorAdd(err error) Entry {
	if err == nil {
		return e
	}
	e.entry = e.entry.WithError(err)
	return e
}

func (e *entryImpl) Check(noErrLevel Level) bool {
	return e.level <= noErrLevel
}

func (e *entryImpl) Log() {
	e.entry.Log(e.level.logrus(), e.message)
}
