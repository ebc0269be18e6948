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
	"context"
	"fmt"

	cashval "github.com/openkiosk/go-cashval"
)

// State is the bring-up state of a validator session. Transitions occur
// strictly in declaration order; a device reset observed during polling
// re-runs the chain from StateSyncAligning.
type State int

const (
	// StateDisconnected is the initial and post-teardown state
	StateDisconnected State = iota
	// StateSyncAligning is aligning framing and sequence via SYNC
	StateSyncAligning
	// StateCapabilitiesDiscovered follows the (best-effort) setup request
	StateCapabilitiesDiscovered
	// StateProtocolNegotiated follows optional protocol negotiation
	StateProtocolNegotiated
	// StateInhibitsSet means channel inhibits were accepted
	StateInhibitsSet
	// StateEnabled means the device is accepting currency
	StateEnabled
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateSyncAligning:
		return "SyncAligning"
	case StateCapabilitiesDiscovered:
		return "CapabilitiesDiscovered"
	case StateProtocolNegotiated:
		return "ProtocolNegotiated"
	case StateInhibitsSet:
		return "InhibitsSet"
	case StateEnabled:
		return "Enabled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Init runs the bring-up sequence a freshly connected or just-reset device
// must pass through before it may accept currency:
//
//	SYNC -> SETUP -> (optional) HOST_PROTOCOL_VERSION -> SET_INHIBITS -> ENABLE
//
// Capability discovery and protocol negotiation are best-effort: their
// failure logs a degraded-mode notice and bring-up proceeds with the
// built-in default channel values. A SYNC, SET_INHIBITS or ENABLE failure
// is fatal — a device that cannot be enabled must not be reported ready.
func (v *Validator) Init(ctx context.Context) error {
	if v.port == nil {
		return cashval.ErrPortNotOpen
	}

	// A resynchronization is always the first thing said after power-up
	// or reset; local sequence state starts from its initial value.
	v.state = StateSyncAligning
	v.seq = 0x00
	if err := v.sync(ctx); err != nil {
		v.state = StateDisconnected
		return fmt.Errorf("sync: %w", err)
	}

	if err := v.setupRequest(ctx); err != nil {
		v.statusf("setup request failed; continuing with default channel values")
	}
	v.state = StateCapabilitiesDiscovered

	if v.requestedVersion > 0 {
		if err := v.SetHostProtocolVersion(ctx, v.requestedVersion); err != nil {
			v.statusf("host protocol version not set; continuing with device default")
		}
		v.state = StateProtocolNegotiated
	}

	if err := v.setInhibits(ctx, nil); err != nil {
		v.state = StateDisconnected
		return fmt.Errorf("set inhibits: %w", err)
	}
	v.state = StateInhibitsSet

	if err := v.Enable(ctx); err != nil {
		v.state = StateDisconnected
		return fmt.Errorf("enable: %w", err)
	}
	v.state = StateEnabled
	v.statusf("validator enabled")
	return nil
}

// sync aligns framing and sequence logic on both sides. After OK, both
// sides expect seq=0 on the next command.
func (v *Validator) sync(ctx context.Context) error {
	if err := v.command(ctx, cmdSync, nil); err != nil {
		v.errorf("sync failed: %v", err)
		return err
	}
	v.seq = 0x00
	return nil
}
