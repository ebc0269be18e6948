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

import "fmt"

// EventKind identifies one kind of decoded validator occurrence
type EventKind int

const (
	// EventUnknown is an event code this package does not recognize
	EventUnknown EventKind = iota
	// EventReading means a note is in transit, no channel decided yet
	EventReading
	// EventNoteRead means a note is escrowed on a channel
	EventNoteRead
	// EventCredit is the credit point for an accepted note
	EventCredit
	// EventRejecting means the note is being returned to the user
	EventRejecting
	// EventRejected means the note was returned; the reason can be queried
	EventRejected
	// EventStacking means the note is moving from escrow to the stacker
	EventStacking
	// EventStacked means the note is fully stacked
	EventStacked
	// EventDisabled means the device reported itself disabled
	EventDisabled
	// EventReset means the device has (re)started
	EventReset
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventReading:
		return "READING"
	case EventNoteRead:
		return "NOTE_READ"
	case EventCredit:
		return "CREDIT"
	case EventRejecting:
		return "REJECTING"
	case EventRejected:
		return "REJECTED"
	case EventStacking:
		return "STACKING"
	case EventStacked:
		return "STACKED"
	case EventDisabled:
		return "DISABLED"
	case EventReset:
		return "SLAVE_RESET"
	default:
		return "UNKNOWN"
	}
}

// Event is one decoded occurrence from a poll cycle. Events are pure data
// and outlive the poll call that produced them.
type Event struct {
	// Kind is the decoded variant
	Kind EventKind
	// Code is the raw event byte as seen on the wire
	Code byte
	// Channel is the note channel, 0 when the event carries none
	Channel int
	// Value is the channel face value, 0 when unknown
	Value int
}

// String formats the event for logs and status callbacks
func (e Event) String() string {
	if e.Channel > 0 {
		return fmt.Sprintf("%s channel=%d value=%d", e.Kind, e.Channel, e.Value)
	}
	if e.Kind == EventUnknown {
		return fmt.Sprintf("UNKNOWN(0x%02X)", e.Code)
	}
	return e.Kind.String()
}

// decodeEvents parses the flat event stream from a poll reply: one-byte
// event codes, some followed by a channel byte. Decoding stops only at
// buffer end and never re-interprets consumed bytes.
func (v *Validator) decodeEvents(stream []byte) []Event {
	events := make([]Event, 0, len(stream))
	for i := 0; i < len(stream); {
		code := stream[i]
		i++

		switch code {
		case evNoteRead, evCreditNote:
			ch := 0
			if i < len(stream) {
				ch = int(stream[i])
				i++
			}
			if ch == 0 {
				// Note in transit, no channel decided yet.
				events = append(events, Event{Kind: EventReading, Code: code})
				continue
			}
			kind := EventNoteRead
			if code == evCreditNote {
				kind = EventCredit
			}
			events = append(events, Event{
				Kind:    kind,
				Code:    code,
				Channel: ch,
				Value:   v.channelValue(ch),
			})
		case evRejecting:
			events = append(events, Event{Kind: EventRejecting, Code: code})
		case evRejected:
			events = append(events, Event{Kind: EventRejected, Code: code})
		case evStacking:
			events = append(events, Event{Kind: EventStacking, Code: code})
		case evStacked:
			events = append(events, Event{Kind: EventStacked, Code: code})
		case evDisabled:
			events = append(events, Event{Kind: EventDisabled, Code: code})
		case evSlaveReset:
			events = append(events, Event{Kind: EventReset, Code: code})
		default:
			events = append(events, Event{Kind: EventUnknown, Code: code})
		}
	}
	return events
}

// channelValue resolves a channel's face value from the discovered dataset,
// falling back to the built-in default table.
func (v *Validator) channelValue(ch int) int {
	if val, ok := v.channelValues[ch]; ok {
		return val
	}
	return defaultChannelValues[ch]
}
