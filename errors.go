// go-cashval
// Copyright (c) 2025 The OpenKiosk Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cashval.
//
// go-cashval is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cashval is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cashval; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package cashval

import (
	"errors"
	"fmt"
)

// Protocol and transport errors shared by both device engines.
var (
	// ErrPortNotOpen indicates an operation was attempted on a closed session
	ErrPortNotOpen = errors.New("serial port not open")
	// ErrTimeout indicates no complete frame arrived within the deadline
	ErrTimeout = errors.New("operation timeout")
	// ErrFrameCorrupted indicates bad framing (start marker, length, stuffing)
	ErrFrameCorrupted = errors.New("frame corrupted")
	// ErrChecksumMismatch indicates a CRC or sum-checksum failure
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrAddressMismatch indicates a reply not addressed to/from the expected
	// party; callers treat it as an absent reply, never a crash
	ErrAddressMismatch = errors.New("reply address mismatch")
	// ErrTransportRead indicates a read failure on the underlying port
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates a write failure on the underlying port
	ErrTransportWrite = errors.New("transport write failed")
	// ErrDeviceFault indicates a device-reported disable or alarm condition
	ErrDeviceFault = errors.New("device fault")
	// ErrDeviceNotFound indicates address discovery found no device on the bus
	ErrDeviceNotFound = errors.New("device not found")
	// ErrCommandRejected indicates the device answered with a non-OK status
	ErrCommandRejected = errors.New("command rejected by device")
	// ErrInvalidParameter indicates a caller-supplied parameter is out of range
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrConfiguration indicates invalid serial settings or an unopenable port
	ErrConfiguration = errors.New("invalid configuration")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry (timeouts, bad frames)
	ErrorTypeTransient
	// ErrorTypePermanent errors will not succeed on retry
	ErrorTypePermanent
	// ErrorTypeConfig errors abort session start with no retry
	ErrorTypeConfig
	// ErrorTypeDevice errors are device-reported faults handled by policy,
	// not by retrying the exchange
	ErrorTypeDevice
)

// TransportError wraps a transport-level failure with operation context
type TransportError struct {
	Err  error
	Op   string
	Port string
	Type ErrorType
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError with the given classification
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{Op: op, Port: port, Err: err, Type: errType}
}

// NewTimeoutError creates a transient TransportError wrapping ErrTimeout
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{Op: op, Port: port, Err: ErrTimeout, Type: ErrorTypeTransient}
}

// retryableSentinels are the errors a bounded retry may recover from.
var retryableSentinels = []error{
	ErrTimeout,
	ErrFrameCorrupted,
	ErrChecksumMismatch,
	ErrAddressMismatch,
	ErrTransportRead,
	ErrTransportWrite,
}

// IsRetryable reports whether err may succeed if the exchange is retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) && te.Type != ErrorTypeUnknown {
		return te.Type == ErrorTypeTransient
	}
	for _, sentinel := range retryableSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GetErrorType classifies an arbitrary error
func GetErrorType(err error) ErrorType {
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case errors.Is(err, ErrConfiguration):
		return ErrorTypeConfig
	case errors.Is(err, ErrDeviceFault):
		return ErrorTypeDevice
	case IsRetryable(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
