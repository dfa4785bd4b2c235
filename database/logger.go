/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tomoncle/docrepo/utils"
)

// DefaultLoggerName is the utils logger used by the connection layer and the
// repositories when no Logger is installed.
const DefaultLoggerName = "DATABASE"

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var logLevels = [...]logrus.Level{
	LogLevelDebug: logrus.DebugLevel,
	LogLevelInfo:  logrus.InfoLevel,
	LogLevelWarn:  logrus.WarnLevel,
	LogLevelError: logrus.ErrorLevel,
}

func (l LogLevel) level() logrus.Level {
	if l < LogLevelDebug || int(l) >= len(logLevels) {
		return logrus.DebugLevel
	}
	return logLevels[l]
}

func (l LogLevel) String() string {
	if l == LogLevelWarn {
		return "WARN"
	}
	return strings.ToUpper(l.level().String())
}

// Logger takes a message followed by alternating key/value fields.
type Logger interface {
	SetLevel(LogLevel)
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

var pkgLogger struct {
	sync.RWMutex
	l Logger
}

// InitLogger installs log as the package logger unless one is already set.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	pkgLogger.Lock()
	if pkgLogger.l == nil {
		pkgLogger.l = log
	}
	pkgLogger.Unlock()
}

// GetLogger returns the installed Logger, creating the DATABASE logger on
// first use.
func GetLogger() Logger {
	pkgLogger.RLock()
	l := pkgLogger.l
	pkgLogger.RUnlock()
	if l == nil {
		InitLogger(NewDefaultLogger(DefaultLoggerName))
		pkgLogger.RLock()
		l = pkgLogger.l
		pkgLogger.RUnlock()
	}
	return l
}

// DefaultLogger writes structured entries to a named logrus logger.
type DefaultLogger struct {
	logger *logrus.Logger
}

// NewDefaultLogger returns a DefaultLogger on the named utils logger.
func NewDefaultLogger(name string) *DefaultLogger {
	return &DefaultLogger{logger: utils.NewLogger(name)}
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.log(logrus.DebugLevel, msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.log(logrus.InfoLevel, msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.log(logrus.WarnLevel, msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.log(logrus.ErrorLevel, msg, fields)
}

func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.logger.SetLevel(level.level())
}

func (l *DefaultLogger) log(level logrus.Level, msg string, kv []interface{}) {
	if !l.logger.IsLevelEnabled(level) {
		return
	}
	l.logger.WithFields(toFields(kv)).Log(level, msg)
}

// toFields pairs up key/value arguments. Pairs with a non-string key and a
// trailing key without value are dropped.
func toFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	return fields
}
