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
	"time"
)

// Port is the serial line a validator session talks over.
// transport/serialport provides the real implementation; tests substitute
// scripted ports.
//
// Read honors the timeout set by SetReadTimeout: an expired read returns
// n == 0 with a nil error, matching go.bug.st/serial semantics. Exchange
// loops rely on this to poll for frame completion against a deadline.
type Port interface {
	// Read reads available bytes into p, returning 0 on read timeout
	Read(p []byte) (n int, err error)

	// Write writes p to the line
	Write(p []byte) (n int, err error)

	// SetReadTimeout sets the per-call read timeout
	SetReadTimeout(timeout time.Duration) error

	// ResetInputBuffer discards unread received bytes
	ResetInputBuffer() error

	// ResetOutputBuffer discards unsent transmit bytes
	ResetOutputBuffer() error

	// Close closes the port; the session owns the handle and closes it
	// exactly once on teardown
	Close() error
}

// FlushPort discards pending data in both directions. Used before
// resynchronization so stale bytes cannot mis-frame the recovery exchange.
func FlushPort(p Port) error {
	if err := p.ResetInputBuffer(); err != nil {
		return NewTransportError("flush input", "", err, ErrorTypeTransient)
	}
	if err := p.ResetOutputBuffer(); err != nil {
		return NewTransportError("flush output", "", err, ErrorTypeTransient)
	}
	return nil
}
