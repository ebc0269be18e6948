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

// ccTalk message headers
const (
	hdrAddressPoll             = 253 // broadcast; device answers with its address
	hdrRequestManufacturerID   = 246
	hdrRequestProductCode      = 244
	hdrRequestSoftwareRevision = 241
	hdrModifyInhibitStatus     = 231
	hdrRequestInhibitStatus    = 230
	hdrReadBufferedCredit      = 229 // 11 bytes: counter + 5*(type,path)
	hdrModifyMasterInhibit     = 228
	hdrRequestMasterInhibit    = 227
	hdrModifySorterPaths       = 210 // 5-byte payload: paths for types 1..5
	hdrRequestCoinID           = 184 // [coinType] -> 6 ASCII chars
)

// broadcastAddress is the wildcard destination for address discovery
const broadcastAddress = 0

// fallbackAddresses are probed in order when no device answers the
// broadcast address poll; collision detection does not exist on this bus.
var fallbackAddresses = []byte{2, 1, 3, 4, 5}

// creditSlots is the number of buffered (type, path) pairs a poll returns.
// Any counter delta beyond it means events were lost and cannot be
// recovered.
const creditSlots = 5

// maxCoinType is the top of the valid coin-type range; higher type codes
// are alarm/error codes.
const maxCoinType = 32

// errorDescriptions is the closed table of alarm/error codes reported in
// buffered-credit slots.
var errorDescriptions = map[int]string{
	1:   "Reject coin",
	2:   "Inhibited coin",
	8:   "2nd close coin error",
	10:  "Credit sensor not ready",
	14:  "Credit sensor blocked",
	16:  "Credit sequence error",
	17:  "Coin going backwards",
	20:  "Coin-on-string mechanism",
	254: "Coin return mechanism",
	255: "Unspecified alarm",
}
