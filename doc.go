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

/*
Package cashval provides pure Go drivers for unattended cash-acceptance
peripherals reachable over asynchronous serial links.

Two device families are supported, each with its own engine package:

  - ssp: ITL-style banknote validators speaking SSP framing with byte
    stuffing, CRC16 and an alternating sequence bit (NV9 and compatible
    units).
  - cctalk: coin validators speaking the checksummed, length-delimited
    ccTalk framing with host/device addressing (G13 and compatible units).

This root package holds what both engines share: the Port abstraction over
a serial line, the error taxonomy, and the bounded retry executor. The
polling package drives either engine on a steady cadence, and
transport/serialport provides the real serial Port.

Basic Usage:

	import (
	    "github.com/openkiosk/go-cashval/polling"
	    "github.com/openkiosk/go-cashval/ssp"
	    "github.com/openkiosk/go-cashval/transport/serialport"
	)

	port, err := serialport.Open("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	validator, err := ssp.New(port)
	if err != nil {
	    log.Fatal(err)
	}

	poller := polling.NewPoller[ssp.Event](validator, nil)
	poller.OnEvent = func(ev ssp.Event) {
	    if ev.Kind == ssp.EventCredit {
	        fmt.Printf("credit: channel %d value %d\n", ev.Channel, ev.Value)
	    }
	}

	// Run blocks until ctx is cancelled; the validator is disabled and
	// the port closed on the way out.
	if err := poller.Run(ctx); err != nil {
	    log.Fatal(err)
	}

Error Handling:

All operations return meaningful errors that can be inspected:

	if errors.Is(err, cashval.ErrTimeout) {
	    // Handle timeout
	}

Thread Safety:

A validator session is single-owner. Both protocols are strict
request/response with no pipelining, so concurrent exchanges on one port
are forbidden by design: drive each session from exactly one goroutine.
Separate sessions on separate ports are fully independent.
*/
package cashval
