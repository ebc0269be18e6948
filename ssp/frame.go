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

package ssp

import (
	"fmt"

	cashval "github.com/openkiosk/go-cashval"
)

// stx is the start-of-frame marker. Frames begin with one 0x7F; any literal
// 0x7F inside the stuffed region is doubled on the wire.
const stx = 0x7F

// crc16 computes the SSP frame CRC: poly 0x8005, seed 0xFFFF, MSB-first.
// It covers the unstuffed payload (address/length/code/params) and is
// appended to the wire frame little-endian.
func crc16(data []byte) uint16 {
	const poly = 0x8005
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// encodeFrame builds one complete wire frame for a command.
// addrSeq carries the 7-bit slave address in the low bits and the sequence
// bit in the high bit.
func encodeFrame(addrSeq, cmd byte, params []byte) []byte {
	payload := make([]byte, 0, 3+len(params)+2)
	payload = append(payload, addrSeq, byte(len(params)+1), cmd)
	payload = append(payload, params...)
	crc := crc16(payload)
	payload = append(payload, byte(crc), byte(crc>>8))

	out := make([]byte, 0, len(payload)+4)
	out = append(out, stx)
	for _, b := range payload {
		if b == stx {
			out = append(out, stx, stx)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// unstuff collapses doubled start-marker bytes back to one.
func unstuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == stx && i+1 < len(data) && data[i+1] == stx {
			i++
		}
	}
	return out
}

// decoder reassembles response frames from an arbitrarily fragmented byte
// stream. It scans for the start marker, accumulates stuffed bytes, and
// completes once 2 + declaredLength + 2 unstuffed bytes are available.
type decoder struct {
	stuffed []byte
	sawSTX  bool
}

func (d *decoder) reset() {
	d.stuffed = d.stuffed[:0]
	d.sawSTX = false
}

// push consumes one wire byte. It returns the complete unstuffed payload
// (address/length/code/params, CRC stripped) once available, nil while more
// bytes are needed, and an error when the accumulated bytes cannot form a
// valid frame. An invalid frame is discarded, never partially interpreted.
func (d *decoder) push(b byte) ([]byte, error) {
	if !d.sawSTX {
		// Noise before the start marker is ignored.
		if b == stx {
			d.sawSTX = true
			d.stuffed = d.stuffed[:0]
		}
		return nil, nil
	}
	d.stuffed = append(d.stuffed, b)

	un := unstuff(d.stuffed)
	if len(un) < 3 {
		return nil, nil
	}

	// Declared length counts code + params; it must cover at least the
	// code byte.
	declared := int(un[1])
	if declared < 1 {
		d.reset()
		return nil, fmt.Errorf("%w: declared length %d", cashval.ErrFrameCorrupted, declared)
	}

	total := 2 + declared
	if len(un) < total+2 {
		return nil, nil
	}

	payload := un[:total]
	rx := uint16(un[total]) | uint16(un[total+1])<<8
	d.reset()
	if rx != crc16(payload) {
		return nil, fmt.Errorf("%w: got %#04x", cashval.ErrChecksumMismatch, rx)
	}

	out := make([]byte, total)
	copy(out, payload)
	return out, nil
}
