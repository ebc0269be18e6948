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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDifferValidator builds a validator with a pre-resolved coin map so
// newEvents never reaches for the port.
func newDifferValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(nil)
	require.NoError(t, err)
	v.coinIDs = map[int]string{
		1: "EU010A", 2: "EU020A", 4: "EU100A", 7: "EU200B",
	}
	return v
}

func pairsOf(raw ...[2]int) []creditPair {
	out := make([]creditPair, creditSlots)
	for i, p := range raw {
		out[i] = creditPair{coinType: p[0], path: p[1]}
	}
	return out
}

func TestNewEvents_FirstPollIsBaselineOnly(t *testing.T) {
	t.Parallel()

	v := newDifferValidator(t)
	events := v.newEvents(context.Background(), 10, pairsOf([2]int{4, 1}))
	assert.Empty(t, events, "history before the baseline must never replay")
	assert.Equal(t, 10, v.lastCounter)
}

func TestNewEvents_UnchangedCounterIsIdempotent(t *testing.T) {
	t.Parallel()

	v := newDifferValidator(t)
	v.lastCounter = 10
	events := v.newEvents(context.Background(), 10, pairsOf([2]int{4, 1}))
	assert.Empty(t, events)
}

func TestNewEvents_SkipsEmptySlotsWithoutConsumingDelta(t *testing.T) {
	t.Parallel()

	v := newDifferValidator(t)
	v.lastCounter = 10

	events := v.newEvents(context.Background(), 12, pairsOf(
		[2]int{4, 1}, [2]int{0, 0}, [2]int{7, 1}, [2]int{2, 1}, [2]int{1, 1}))

	require.Len(t, events, 2)
	assert.Equal(t, 4, events[0].CoinType)
	assert.Equal(t, 1, events[0].Path)
	assert.Equal(t, 7, events[1].CoinType)
	assert.Equal(t, 1, events[1].Path)
}

func TestNewEvents_ModuloCounterArithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		last     int
		current  int
		expected int
	}{
		{name: "Simple_Increment", last: 10, current: 13, expected: 3},
		{name: "Wraparound", last: 250, current: 2, expected: 5},
		{name: "Delta_Fills_All_Slots", last: 0, current: 5, expected: 5},
		{name: "Delta_Beyond_Slots_Capped", last: 0, current: 200, expected: 5},
	}

	full := pairsOf([2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1})
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := newDifferValidator(t)
			v.lastCounter = tt.last
			events := v.newEvents(context.Background(), tt.current, full)
			assert.Len(t, events, tt.expected)
			assert.Equal(t, tt.current, v.lastCounter)
		})
	}
}

func TestNewEvents_ErrorCodes(t *testing.T) {
	t.Parallel()

	v := newDifferValidator(t)
	v.lastCounter = 0

	events := v.newEvents(context.Background(), 2, pairsOf([2]int{255, 0}, [2]int{33, 0}))
	require.Len(t, events, 2)

	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, 255, events[0].Code)
	assert.Equal(t, "Unspecified alarm", events[0].Description)

	assert.Equal(t, EventError, events[1].Kind)
	assert.Equal(t, 33, events[1].Code)
	assert.Equal(t, "Unknown", events[1].Description, "codes outside the table still surface")
}

func TestCreditEvent_ResolvedAndDegraded(t *testing.T) {
	t.Parallel()

	v := newDifferValidator(t)

	resolved := v.creditEvent(context.Background(), creditPair{coinType: 4, path: 2}, 11)
	assert.Equal(t, EventCredit, resolved.Kind)
	assert.Equal(t, "EU100A", resolved.CoinID)
	assert.Equal(t, "€1.00 (EU100A)", resolved.Label)
	assert.Equal(t, 100, resolved.ValueCents)
	assert.Equal(t, 2, resolved.Path)
	assert.Equal(t, 11, resolved.Counter)

	// Type 5 is unknown and the port is nil, so resolution fails and the
	// event degrades to a generic label with no value.
	degraded := v.creditEvent(context.Background(), creditPair{coinType: 5, path: 1}, 12)
	assert.Equal(t, "type 5", degraded.Label)
	assert.Empty(t, degraded.CoinID)
	assert.Zero(t, degraded.ValueCents)
}

func TestEvent_String(t *testing.T) {
	t.Parallel()

	credit := Event{Kind: EventCredit, Label: "€1.00 (EU100A)", CoinType: 4, Path: 1}
	assert.Equal(t, "CREDIT €1.00 (EU100A) (type 4, path 1)", credit.String())

	alarm := Event{Kind: EventError, Code: 14, Description: "Credit sensor blocked"}
	assert.Equal(t, "ERROR 14 - Credit sensor blocked", alarm.String())
}
