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

// Package mockport provides a scripted in-memory serial port for protocol
// tests. Replies are generated per written frame, so a test scripts the
// device side of a conversation instead of a fixed byte stream.
package mockport

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a closed mock port
var ErrClosed = errors.New("mockport: port closed")

// Port is an in-memory implementation of the cashval.Port contract. Read
// models a serial read timeout: when no bytes are pending it sleeps the
// configured read timeout and returns (0, nil).
type Port struct {
	// Script generates the device's reply to one written frame. A nil
	// Script (or a nil return) produces silence, i.e. read timeouts.
	Script func(frame []byte) []byte

	// Echo queues every written frame back to the reader before the
	// scripted reply, like a bus that echoes the host's own bytes.
	Echo bool

	// ReadErr and WriteErr force hard transport failures when set
	ReadErr  error
	WriteErr error

	mu          sync.Mutex
	rx          []byte
	writes      [][]byte
	readTimeout time.Duration
	closed      bool
}

// Queue appends bytes for the host to read, ahead of any scripted replies
func (p *Port) Queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = append(p.rx, b...)
}

// Writes returns every frame written so far
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Read copies pending bytes into buf. With nothing pending it behaves
// like a timed-out serial read.
func (p *Port) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	if p.ReadErr != nil {
		err := p.ReadErr
		p.mu.Unlock()
		return 0, err
	}
	if len(p.rx) == 0 {
		timeout := p.readTimeout
		p.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	n := copy(buf, p.rx)
	p.rx = p.rx[n:]
	p.mu.Unlock()
	return n, nil
}

// Write records the frame and queues the scripted reply
func (p *Port) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	frame := append([]byte(nil), buf...)
	p.writes = append(p.writes, frame)
	if p.Echo {
		p.rx = append(p.rx, frame...)
	}
	if p.Script != nil {
		if reply := p.Script(frame); reply != nil {
			p.rx = append(p.rx, reply...)
		}
	}
	return len(buf), nil
}

// SetReadTimeout sets how long an empty Read blocks before returning
func (p *Port) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.readTimeout = timeout
	return nil
}

// ResetInputBuffer discards pending read bytes
func (p *Port) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.rx = nil
	return nil
}

// ResetOutputBuffer is a no-op; writes complete synchronously
func (p *Port) ResetOutputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the port closed. Closing twice is a no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
