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

// Command codes (host -> device)
const (
	// cmdSync must be sent first; after OK the next command uses seq=0
	cmdSync = 0x11
	// cmdHostProtocolVersion locks the device to a protocol level
	cmdHostProtocolVersion = 0x06
	// cmdSetupRequest returns dataset info: channels, multiplier, currency
	cmdSetupRequest = 0x05
	// cmdSetInhibits enables/disables channels; bitmask LSB = channel 1
	cmdSetInhibits = 0x02
	// cmdEnable starts note acceptance
	cmdEnable = 0x0A
	// cmdDisable stops note acceptance
	cmdDisable = 0x09
	// cmdPoll fetches all events since the last poll
	cmdPoll = 0x07
	// cmdLastRejectCode returns a one-byte reason for the latest rejection
	cmdLastRejectCode = 0x17
	// cmdHold keeps a note in escrow by refreshing the timeout
	cmdHold = 0x18
)

// Response and event codes (device -> host)
const (
	respOK = 0xF0 // generic success reply

	evSlaveReset = 0xF1 // device has (re)started
	evNoteRead   = 0xEF // data=0 scanning; >0 escrowed on that channel
	evCreditNote = 0xEE // data = credited channel (credit point)
	evRejecting  = 0xED // returning note to user
	evRejected   = 0xEC // rejected to user; query 0x17 for the reason
	evStacking   = 0xCC // moving from escrow to stacker
	evStacked    = 0xEB // fully stacked
	evDisabled   = 0xE8 // device disabled
)

// rejectReasons maps the one-byte code returned by cmdLastRejectCode to a
// human-readable string. Looked up on demand, not cached per event.
var rejectReasons = map[byte]string{
	0x00: "No reason / Accepted",
	0x01: "Note too long",
	0x02: "Note too short",
	0x03: "Invalid note",
	0x04: "Accept gate not ready",
	0x05: "Channel inhibited",
}

// defaultChannelValues is the fallback channel -> face value table used
// until a dataset is parsed from the device. Values are whole currency
// units for a standard EUR dataset.
var defaultChannelValues = map[int]int{
	1: 5, 2: 10, 3: 20, 4: 50, 5: 100, 6: 200, 7: 500,
}
