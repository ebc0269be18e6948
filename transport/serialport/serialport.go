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

// Package serialport provides the serial transport for cash-acceptance
// devices. Both supported device families speak 9600 8N1.
package serialport

import (
	"time"

	cashval "github.com/openkiosk/go-cashval"
	"go.bug.st/serial"
)

// DefaultBaudRate matches both supported validator families
const DefaultBaudRate = 9600

// settleDelay lets the device-side UART settle after the port opens
const settleDelay = 20 * time.Millisecond

// Port is a serial transport over a local device node such as
// /dev/ttyUSB0. It implements cashval.Port.
type Port struct {
	port serial.Port
	name string
	baud int
}

var _ cashval.Port = (*Port)(nil)

// Option is a functional option for configuring a Port
type Option func(*Port) error

// WithBaudRate overrides the default baud rate
func WithBaudRate(baud int) Option {
	return func(p *Port) error {
		if baud <= 0 {
			return cashval.ErrInvalidParameter
		}
		p.baud = baud
		return nil
	}
}

// Open opens the serial device at 8N1 and flushes any stale bytes left in
// the driver buffers from a previous session.
func Open(name string, opts ...Option) (*Port, error) {
	p := &Port{name: name, baud: DefaultBaudRate}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate: p.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, cashval.NewTransportError("open", name, err, cashval.ErrorTypePermanent)
	}
	p.port = port

	time.Sleep(settleDelay)
	if err := cashval.FlushPort(p); err != nil {
		_ = port.Close()
		p.port = nil
		return nil, err
	}
	return p, nil
}

// Name returns the device node path
func (p *Port) Name() string {
	return p.name
}

// IsConnected reports whether the port is open
func (p *Port) IsConnected() bool {
	return p.port != nil
}

// Read reads available bytes. On read timeout it returns n == 0 with a
// nil error, per the cashval.Port contract.
func (p *Port) Read(buf []byte) (int, error) {
	if p.port == nil {
		return 0, cashval.ErrPortNotOpen
	}
	n, err := p.port.Read(buf)
	if err != nil {
		return n, cashval.NewTransportError("read", p.name, err, cashval.ErrorTypeTransient)
	}
	return n, nil
}

// Write writes buf to the device
func (p *Port) Write(buf []byte) (int, error) {
	if p.port == nil {
		return 0, cashval.ErrPortNotOpen
	}
	n, err := p.port.Write(buf)
	if err != nil {
		return n, cashval.NewTransportError("write", p.name, err, cashval.ErrorTypeTransient)
	}
	return n, nil
}

// SetReadTimeout bounds subsequent Read calls
func (p *Port) SetReadTimeout(timeout time.Duration) error {
	if p.port == nil {
		return cashval.ErrPortNotOpen
	}
	if err := p.port.SetReadTimeout(timeout); err != nil {
		return cashval.NewTransportError("set read timeout", p.name, err, cashval.ErrorTypeTransient)
	}
	return nil
}

// ResetInputBuffer discards unread received bytes
func (p *Port) ResetInputBuffer() error {
	if p.port == nil {
		return cashval.ErrPortNotOpen
	}
	if err := p.port.ResetInputBuffer(); err != nil {
		return cashval.NewTransportError("flush input", p.name, err, cashval.ErrorTypeTransient)
	}
	return nil
}

// ResetOutputBuffer discards unsent bytes
func (p *Port) ResetOutputBuffer() error {
	if p.port == nil {
		return cashval.ErrPortNotOpen
	}
	if err := p.port.ResetOutputBuffer(); err != nil {
		return cashval.NewTransportError("flush output", p.name, err, cashval.ErrorTypeTransient)
	}
	return nil
}

// Close closes the device node. Closing an already-closed port is a no-op.
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return cashval.NewTransportError("close", p.name, err, cashval.ErrorTypeTransient)
	}
	return nil
}
