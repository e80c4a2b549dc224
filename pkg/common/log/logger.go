/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log provides module-scoped leveled loggers. A custom logging implementation
// can be plugged in with Initialize before any line is logged.
package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync"
)

// Level defines a log level for logging messages.
type Level int

// Log levels.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

var levelNames = []string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG"} //nolint:gochecknoglobals

// ParseLevel returns the log level from a string representation.
func ParseLevel(level string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(name, level) {
			return Level(i), nil
		}
	}

	return ERROR, fmt.Errorf("invalid log level: %s", level)
}

// Logger is the logging interface implemented by a provider.
type Logger interface {
	Fatalf(msg string, args ...interface{})
	Panicf(msg string, args ...interface{})
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

// Provider is a factory for module loggers.
type Provider interface {
	GetLogger(module string) Logger
}

//nolint:gochecknoglobals
var (
	mu             sync.RWMutex
	provider       Provider
	moduleLevels   = map[string]Level{}
	defaultLogFlag = stdlog.Ldate | stdlog.Ltime | stdlog.LUTC
)

// Initialize sets the custom logger provider. It must be called before any logging line
// is written; later calls are ignored.
func Initialize(p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if provider == nil {
		provider = p
	}
}

// SetLevel sets the log level for the given module.
func SetLevel(module string, level Level) {
	mu.Lock()
	defer mu.Unlock()

	moduleLevels[module] = level
}

// GetLevel returns the log level of the given module. The default level is INFO.
func GetLevel(module string) Level {
	mu.RLock()
	defer mu.RUnlock()

	if level, ok := moduleLevels[module]; ok {
		return level
	}

	return INFO
}

// IsEnabledFor checks if the given log level is enabled for the module.
func IsEnabledFor(module string, level Level) bool {
	return level <= GetLevel(module)
}

// Log is an implementation of Logger interface. It encapsulates a default or custom
// logger to provide module and level based logging.
type Log struct {
	instance Logger
	module   string
	once     sync.Once
}

// New creates and returns a Logger implementation based on the given module name.
// The underlying logger instance is lazy initialized on first use.
func New(module string) *Log {
	return &Log{module: module}
}

// Fatalf calls Fatalf function of the underlying logger.
func (l *Log) Fatalf(msg string, args ...interface{}) {
	l.logger().Fatalf(msg, args...)
}

// Panicf calls Panicf function of the underlying logger.
func (l *Log) Panicf(msg string, args ...interface{}) {
	l.logger().Panicf(msg, args...)
}

// Debugf calls Debugf function of the underlying logger.
func (l *Log) Debugf(msg string, args ...interface{}) {
	if IsEnabledFor(l.module, DEBUG) {
		l.logger().Debugf(msg, args...)
	}
}

// Infof calls Infof function of the underlying logger.
func (l *Log) Infof(msg string, args ...interface{}) {
	if IsEnabledFor(l.module, INFO) {
		l.logger().Infof(msg, args...)
	}
}

// Warnf calls Warnf function of the underlying logger.
func (l *Log) Warnf(msg string, args ...interface{}) {
	if IsEnabledFor(l.module, WARNING) {
		l.logger().Warnf(msg, args...)
	}
}

// Errorf calls Errorf function of the underlying logger.
func (l *Log) Errorf(msg string, args ...interface{}) {
	if IsEnabledFor(l.module, ERROR) {
		l.logger().Errorf(msg, args...)
	}
}

func (l *Log) logger() Logger {
	l.once.Do(func() {
		mu.RLock()
		p := provider
		mu.RUnlock()

		if p == nil {
			l.instance = &defLogger{logger: stdlog.New(os.Stderr, fmt.Sprintf(" [%s] ", l.module), defaultLogFlag)}
			return
		}

		l.instance = p.GetLogger(l.module)
	})

	return l.instance
}

type defLogger struct {
	logger *stdlog.Logger
}

func (l *defLogger) Fatalf(msg string, args ...interface{}) {
	l.logger.Fatalf(msg, args...)
}

func (l *defLogger) Panicf(msg string, args ...interface{}) {
	l.logger.Panicf(msg, args...)
}

func (l *defLogger) Debugf(msg string, args ...interface{}) {
	l.logf(DEBUG, msg, args...)
}

func (l *defLogger) Infof(msg string, args ...interface{}) {
	l.logf(INFO, msg, args...)
}

func (l *defLogger) Warnf(msg string, args ...interface{}) {
	l.logf(WARNING, msg, args...)
}

func (l *defLogger) Errorf(msg string, args ...interface{}) {
	l.logf(ERROR, msg, args...)
}

func (l *defLogger) logf(level Level, msg string, args ...interface{}) {
	l.logger.Printf(fmt.Sprintf("%s %s", levelNames[level], msg), args...)
}
