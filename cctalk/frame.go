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

package cctalk

// Frames carry a fixed 4-byte header [dest][dataLen][src][header], the data
// bytes, and one trailing checksum byte. There is no start marker and no
// stuffing; frame boundaries are purely length-driven.

// headerLen is the fixed frame header size
const headerLen = 4

// checksum returns the two's-complement-negated low byte of the byte sum,
// so a valid frame's full byte sum is 0 mod 256.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return -sum
}

// encodeFrame builds one complete wire frame
func encodeFrame(dest, src, header byte, data []byte) []byte {
	frame := make([]byte, 0, headerLen+len(data)+1)
	frame = append(frame, dest, byte(len(data)), src, header)
	frame = append(frame, data...)
	frame = append(frame, checksum(frame))
	return frame
}

// sumValid reports whether a received frame passes the sum check
func sumValid(frame []byte) bool {
	var sum byte
	for _, b := range frame {
		sum += b
	}
	return sum == 0
}

// frameData returns the data bytes of a complete frame
func frameData(frame []byte) []byte {
	return frame[headerLen : len(frame)-1]
}
