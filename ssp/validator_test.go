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
	"testing"
	"time"

	cashval "github.com/openkiosk/go-cashval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OptionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opt     Option
		wantErr bool
	}{
		{name: "Valid_Address", opt: WithAddress(0x10), wantErr: false},
		{name: "Max_Address", opt: WithAddress(0x7D), wantErr: false},
		{name: "Address_Out_Of_Range", opt: WithAddress(0x7E), wantErr: true},
		{name: "Valid_Protocol_Version", opt: WithHostProtocolVersion(6), wantErr: false},
		{name: "Zero_Protocol_Version", opt: WithHostProtocolVersion(0), wantErr: true},
		{name: "Nil_Config", opt: WithConfig(nil), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(nil, tt.opt)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, cashval.ErrInvalidParameter)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestHold_ClampsDuration(t *testing.T) {
	t.Parallel()

	script := newSSPScript()
	v, _ := newTestValidator(t, script)
	ctx := context.Background()
	require.NoError(t, v.Init(ctx))

	tests := []struct {
		name     string
		duration time.Duration
		expected []byte // little-endian milliseconds
	}{
		{name: "Normal", duration: 2 * time.Second, expected: []byte{0xD0, 0x07}},
		{name: "Clamped_High", duration: time.Minute, expected: []byte{0x10, 0x27}},
		{name: "Clamped_Negative", duration: -time.Second, expected: []byte{0x00, 0x00}},
	}

	for _, tt := range tests {
		require.NoError(t, v.Hold(ctx, tt.duration))
		holds := script.commandsOf(cmdHold)
		assert.Equal(t, tt.expected, holds[len(holds)-1].params, tt.name)
	}
}

func TestLastRejectReason(t *testing.T) {
	t.Parallel()

	script := newSSPScript()
	v, _ := newTestValidator(t, script)
	ctx := context.Background()
	require.NoError(t, v.Init(ctx))

	script.mu.Lock()
	script.replies[cmdLastRejectCode] = []byte{0x03}
	script.mu.Unlock()

	reason, err := v.LastRejectReason(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Invalid note", reason)

	// Codes outside the table surface as hex rather than failing.
	script.mu.Lock()
	script.replies[cmdLastRejectCode] = []byte{0x77}
	script.mu.Unlock()

	reason, err = v.LastRejectReason(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0x77", reason)
}

func TestClose_DisablesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	script := newSSPScript()
	v, _ := newTestValidator(t, script)
	ctx := context.Background()
	require.NoError(t, v.Init(ctx))

	require.NoError(t, v.Close())
	assert.Equal(t, 1, script.countOf(cmdDisable), "close must attempt a graceful disable")
	assert.Equal(t, StateDisconnected, v.State())

	require.NoError(t, v.Close(), "second close is a no-op")
	assert.Equal(t, 1, script.countOf(cmdDisable))
}

func TestInit_PortNotOpen(t *testing.T) {
	t.Parallel()

	v, err := New(nil)
	require.NoError(t, err)
	err = v.Init(context.Background())
	assert.ErrorIs(t, err, cashval.ErrPortNotOpen)
}
