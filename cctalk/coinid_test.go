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

	cashval "github.com/openkiosk/go-cashval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFromCoinID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		id       string
		expected int
		ok       bool
	}{
		{name: "Fifty_Cents", id: "EU050A", expected: 50, ok: true},
		{name: "Two_Euro", id: "EU200B", expected: 200, ok: true},
		{name: "Zero", id: "EU000A", expected: 0, ok: true},
		{name: "Non_Numeric", id: "EUxxxA", ok: false},
		{name: "Too_Short", id: "EU5", ok: false},
		{name: "Empty", id: "", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cents, ok := valueFromCoinID(tt.id)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, cents)
			}
		})
	}
}

func TestLabelForCoinID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{name: "Euro_Symbol", id: "EU200A", expected: "€2.00 (EU200A)"},
		{name: "Cents", id: "EU050A", expected: "€0.50 (EU050A)"},
		{name: "Other_Country_Keeps_Code", id: "GB100A", expected: "GB1.00 (GB100A)"},
		{name: "Unparseable_Returned_As_Is", id: "EUxxxA", expected: "EUxxxA"},
		{name: "Wrong_Length_Returned_As_Is", id: "EU1", expected: "EU1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, labelForCoinID(tt.id))
		})
	}
}

func TestRequestCoinID(t *testing.T) {
	t.Parallel()

	script := newCoinScript(2)
	v, _ := newTestCoinValidator(t, script, WithAddress(2))
	ctx := context.Background()

	id, err := v.RequestCoinID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "EU100A", id)
}

func TestRequestCoinID_BlankSlot(t *testing.T) {
	t.Parallel()

	script := newCoinScript(2)
	v, _ := newTestCoinValidator(t, script, WithAddress(2))

	// Type 9 has no identifier programmed; the device answers blanks.
	_, err := v.RequestCoinID(context.Background(), 9)
	require.Error(t, err)
	assert.ErrorIs(t, err, cashval.ErrDeviceFault)
}

func TestRequestCoinID_RangeValidation(t *testing.T) {
	t.Parallel()

	script := newCoinScript(2)
	v, _ := newTestCoinValidator(t, script, WithAddress(2))
	ctx := context.Background()

	_, err := v.RequestCoinID(ctx, 0)
	assert.ErrorIs(t, err, cashval.ErrInvalidParameter)

	_, err = v.RequestCoinID(ctx, maxCoinType+1)
	assert.ErrorIs(t, err, cashval.ErrInvalidParameter)
}
