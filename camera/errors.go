// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import "fmt"

// ErrorKind names one of spec.md §7's error taxonomy entries. The original
// source raised typed C++ exceptions up to the RPC boundary; here every
// fallible operation returns a *Error instead, converted to the RPC wire
// error type at the handler boundary (spec.md §9's "exceptions for control
// flow" redesign note).
type ErrorKind int

// Error kinds, in the order spec.md §7 lists them.
const (
	ConfigError ErrorKind = iota + 1
	HardwareError
	InvariantViolation
	BusyError
	TimeoutError
	AbortedError
	FilesystemError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case HardwareError:
		return "HardwareError"
	case InvariantViolation:
		return "InvariantViolation"
	case BusyError:
		return "BusyError"
	case TimeoutError:
		return "TimeoutError"
	case AbortedError:
		return "AbortedError"
	case FilesystemError:
		return "FilesystemError"
	default:
		return "UnknownError"
	}
}

// Error is the camera subsystem's single error type, carrying an ErrorKind
// the RPC handler maps onto a wire error code plus a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	// Code is a driver-supplied error code string, populated only for
	// HardwareError.
	Code string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code %s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func hardwareError(code string, format string, args ...interface{}) *Error {
	return &Error{Kind: HardwareError, Message: fmt.Sprintf(format, args...), Code: code}
}

// KindOf extracts the ErrorKind from err, or 0 if err is not a *Error.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return 0
}
