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

import (
	"context"
	"fmt"
)

// EventKind identifies one kind of decoded coin validator occurrence
type EventKind int

const (
	// EventCredit is an accepted coin
	EventCredit EventKind = iota
	// EventError is a device-reported alarm or reject condition
	EventError
)

// Event is one decoded occurrence from a buffered-credit poll. Events are
// pure data and outlive the poll call that produced them.
type Event struct {
	// CoinID is the 6-character device identifier, "" when unresolved
	CoinID string
	// Label is a display label; degrades to "type N" when the coin ID
	// could not be resolved
	Label string
	// Description is the error description for EventError
	Description string
	// Kind is the decoded variant
	Kind EventKind
	// CoinType is the coin type for EventCredit
	CoinType int
	// Path is the sorter path the coin was routed to
	Path int
	// ValueCents is the face value in minor currency units, 0 when unknown
	ValueCents int
	// Code is the alarm code for EventError
	Code int
	// Counter is the rolling event counter value at the producing poll
	Counter int
}

// String formats the event for logs and status callbacks
func (e Event) String() string {
	if e.Kind == EventError {
		return fmt.Sprintf("ERROR %d - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("CREDIT %s (type %d, path %d)", e.Label, e.CoinType, e.Path)
}

// creditPair is one buffered (type, path) slot
type creditPair struct {
	coinType int
	path     int
}

// newEvents diffs the rolling 8-bit counter against the previous poll and
// decodes only the pairs that are actually new. pairs must be ordered
// newest-first.
func (v *Validator) newEvents(ctx context.Context, counter int, pairs []creditPair) []Event {
	if v.lastCounter < 0 {
		// First poll after bring-up: record a baseline only, so
		// pre-existing history is never replayed as fresh credits.
		v.lastCounter = counter
		return nil
	}

	diff := (counter - v.lastCounter) & 0xFF
	v.lastCounter = counter
	if diff == 0 {
		return nil
	}

	// The slot count is physically limited; a larger delta means events
	// were lost and cannot be recovered.
	n := diff
	if n > creditSlots {
		n = creditSlots
	}

	events := make([]Event, 0, n)
	for _, pair := range pairs {
		if len(events) == n {
			break
		}
		if pair.coinType == 0 {
			// Empty slot; it does not count against the delta.
			continue
		}
		if pair.coinType >= 1 && pair.coinType <= maxCoinType {
			events = append(events, v.creditEvent(ctx, pair, counter))
			continue
		}
		desc, found := errorDescriptions[pair.coinType]
		if !found {
			desc = "Unknown"
		}
		events = append(events, Event{
			Kind:        EventError,
			Code:        pair.coinType,
			Description: desc,
			Counter:     counter,
		})
	}
	return events
}

// creditEvent resolves a credit pair against the coin-type map, querying
// the device on first sighting. Resolution failures degrade to a generic
// "type N" label with no value.
func (v *Validator) creditEvent(ctx context.Context, pair creditPair, counter int) Event {
	id := v.coinIDs[pair.coinType]
	if id == "" {
		if resolved, err := v.RequestCoinID(ctx, pair.coinType); err == nil {
			id = resolved
			v.coinIDs[pair.coinType] = id
		}
	}

	ev := Event{
		Kind:     EventCredit,
		CoinType: pair.coinType,
		Path:     pair.path,
		CoinID:   id,
		Label:    fmt.Sprintf("type %d", pair.coinType),
		Counter:  counter,
	}
	if id != "" {
		ev.Label = labelForCoinID(id)
		if cents, ok := valueFromCoinID(id); ok {
			ev.ValueCents = cents
		}
	}
	return ev
}
