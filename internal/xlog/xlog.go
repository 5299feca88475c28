// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package xlog is a thin, explicitly-passed logger. It never uses a
// package-level global: every subsystem is handed its own *Logger so the
// server instance, not the process, owns logging state.
package xlog

import (
	"fmt"
	"io"
	"log"
)

// Level is a verbosity filtering level, carried over from the original
// server's LOG_VERBOSITY_* ladder: high priority/terse messages are always
// worth keeping, detail/very-verbose messages can be filtered out.
type Level int

// Verbosity levels, ordered from highest priority to most verbose.
const (
	VeryTerse Level = iota + 1
	Terse
	Intermediate
	Verbose
	VeryVerbose
)

// Facility names the software module a log line came from, carried over
// from the original server's FAC_* enum.
type Facility string

// Known facilities.
const (
	FacilityMain      Facility = "main"
	FacilityCamera    Facility = "camera"
	FacilityMechanism Facility = "mechanism"
	FacilityFITS      Facility = "fits"
	FacilityActuator  Facility = "actuator"
	FacilityPIO       Facility = "pio"
	FacilityConfig    Facility = "config"
)

// Logger prefixes every line with a facility tag and filters by verbosity,
// the way mkd_log's log_to_stdout/log_to_log4cxx did, minus the global
// state: this is a value, constructed once per server and passed down.
type Logger struct {
	out     *log.Logger
	level   Level
	facName string
}

// New returns a Logger that writes to w, keeping lines at or below level.
func New(w io.Writer, fac Facility, level Level) *Logger {
	return &Logger{
		out:     log.New(w, fmt.Sprintf("[%s] ", fac), log.LstdFlags|log.Lmicroseconds),
		level:   level,
		facName: string(fac),
	}
}

// With returns a copy of l scoped to a different facility, sharing the
// same output and verbosity level.
func (l *Logger) With(fac Facility) *Logger {
	n := *l
	n.out = log.New(l.out.Writer(), fmt.Sprintf("[%s] ", fac), log.LstdFlags|log.Lmicroseconds)
	n.facName = string(fac)
	return &n
}

// Logf emits a message at the given level if the logger's configured
// level permits it.
func (l *Logger) Logf(level Level, format string, args ...interface{}) {
	if l == nil || level > l.level {
		return
	}
	l.out.Printf(format, args...)
}

// Errorf always logs, regardless of level, matching the original's
// treatment of LOG_CRIT/LOG_SYS/LOG_ERR as never-filtered.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.out.Printf("ERROR "+format, args...)
}

// Fatalf logs at error severity. Unlike log.Fatalf it does not exit the
// process: fatal conditions inside a worker must surface through state,
// not crash the server (spec §7's propagation policy).
func (l *Logger) Fatalf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.out.Printf("FATAL "+format, args...)
}
