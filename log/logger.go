/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package log is the structured logging facade used across capx.
//
// Components receive a Logger through their options; the default is a
// zap-backed JSON logger writing Info and above to stdout. Tests usually
// pass DiscardLogger or a Zap writing into a buffer.
package log

import (
	"fmt"
	"io"
	"strings"
)

// Level is a logging severity.
type Level int

const (
	// DebugLevel logs everything.
	DebugLevel Level = iota
	// InfoLevel is the default level.
	InfoLevel
	// WarningLevel logs warnings and errors.
	WarningLevel
	// ErrorLevel logs errors only.
	ErrorLevel
	// InvalidLevel marks an unknown level.
	InvalidLevel
)

// String returns the canonical, upper-case name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// ParseLevel parses a level name (case-insensitive). "warn" is accepted as
// an alias of "warning".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarningLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InvalidLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// Logger is the logging contract of capx components.
type Logger interface {
	// Debug starts a new message with debug level.
	Debug(...any)
	// Debugf starts a new message with debug level.
	Debugf(string, ...any)
	// Info starts a new message with info level.
	Info(...any)
	// Infof starts a new message with info level.
	Infof(string, ...any)
	// Warn starts a new message with warn level.
	Warn(...any)
	// Warnf starts a new message with warn level.
	Warnf(string, ...any)
	// Error starts a new message with error level.
	Error(...any)
	// Errorf starts a new message with error level.
	Errorf(string, ...any)
	// With returns a Logger that adds the key-value pairs to every entry.
	With(keyValues ...any) Logger
	// LogLevel returns the minimum enabled level.
	LogLevel() Level
	// LogOutput returns the writers the logger writes to.
	LogOutput() []io.Writer
}
