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
	"strconv"
	"strings"

	cashval "github.com/openkiosk/go-cashval"
)

// Coin identifiers are 6 ASCII characters: a 2-letter country code, a
// 3-digit value in minor units, and a revision letter, e.g. "EU050A" for
// a €0.50 coin.

// RequestCoinID queries the device for the identifier programmed on a coin
// type. Blank or short replies return ErrDeviceFault.
func (v *Validator) RequestCoinID(ctx context.Context, coinType int) (string, error) {
	if coinType < 1 || coinType > maxCoinType {
		return "", fmt.Errorf("%w: coin type %d", cashval.ErrInvalidParameter, coinType)
	}
	reply, err := v.exchange(ctx, v.addr, hdrRequestCoinID, []byte{byte(coinType)})
	if err != nil {
		return "", err
	}
	id := string(frameData(reply))
	if len(id) != 6 || strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: no identifier for coin type %d", cashval.ErrDeviceFault, coinType)
	}
	return id, nil
}

// labelForCoinID renders a display label, e.g. "EU200A" -> "€2.00 (EU200A)".
// Unparseable identifiers are returned as-is.
func labelForCoinID(id string) string {
	if len(id) != 6 {
		return id
	}
	cents, ok := valueFromCoinID(id)
	if !ok {
		return id
	}
	symbol := id[:2]
	if symbol == "EU" {
		symbol = "€"
	}
	return fmt.Sprintf("%s%.2f (%s)", symbol, float64(cents)/100, id)
}

// valueFromCoinID extracts the face value in minor units, e.g. "EU050A" -> 50
func valueFromCoinID(id string) (int, bool) {
	if len(id) < 5 {
		return 0, false
	}
	cents, err := strconv.Atoi(id[2:5])
	if err != nil {
		return 0, false
	}
	return cents, true
}
