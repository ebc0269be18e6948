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

// Package ssp implements the SSP banknote validator protocol used by ITL
// NV9-class devices: stuffed CRC16 framing, strict command/response
// turn-taking with an alternating sequence bit, and decoding of the polled
// event stream into typed credit/status events.
package ssp

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	cashval "github.com/openkiosk/go-cashval"
	"go.uber.org/zap"
)

// Config holds the protocol timing constants. They are configuration, not
// protocol: all of them are tunable without touching codec or exchange
// logic.
type Config struct {
	// CommandDeadline is the reply deadline for routine commands
	CommandDeadline time.Duration
	// SetupDeadline is the reply deadline for the larger setup reply
	SetupDeadline time.Duration
	// ReadChunkTimeout is the per-read window while assembling a frame
	ReadChunkTimeout time.Duration
	// EnableBackoff is the minimum gap between automatic re-enable attempts
	EnableBackoff time.Duration
	// Retries is the number of resends before the resync recovery round
	Retries int
}

// DefaultConfig returns timings NV9-class devices are comfortable with
func DefaultConfig() *Config {
	return &Config{
		CommandDeadline:  1 * time.Second,
		SetupDeadline:    1200 * time.Millisecond,
		ReadChunkTimeout: 20 * time.Millisecond,
		EnableBackoff:    1 * time.Second,
		Retries:          2,
	}
}

// Validator is one banknote validator session. It exclusively owns its
// serial port and is single-owner: all methods must be called from one
// goroutine.
type Validator struct {
	lastEnableAttempt time.Time
	port              cashval.Port
	log               *zap.Logger
	cfg               *Config
	channelValues     map[int]int

	// OnStatus receives human-readable progress notices
	OnStatus func(msg string)
	// OnError receives advisory error text; polling keeps running
	OnError func(msg string)

	currency         string
	numChannels      int
	multiplier       int
	state            State
	address          byte
	requestedVersion byte
	seq              byte
}

// Option is a functional option for configuring a Validator
type Option func(*Validator) error

// WithLogger sets the diagnostic logger (default: no-op)
func WithLogger(log *zap.Logger) Option {
	return func(v *Validator) error {
		v.log = log
		return nil
	}
}

// WithAddress sets the SSP bus address (0..0x7D, default 0x00)
func WithAddress(address byte) Option {
	return func(v *Validator) error {
		if address > 0x7D {
			return fmt.Errorf("%w: address %#02x out of range", cashval.ErrInvalidParameter, address)
		}
		v.address = address
		return nil
	}
}

// WithHostProtocolVersion requests a protocol level during bring-up.
// Negotiation is best-effort: an unsupported version logs a degraded-mode
// notice and the device default stays in effect.
func WithHostProtocolVersion(version byte) Option {
	return func(v *Validator) error {
		if version < 1 {
			return fmt.Errorf("%w: protocol version %d", cashval.ErrInvalidParameter, version)
		}
		v.requestedVersion = version
		return nil
	}
}

// WithConfig overrides the default protocol timings
func WithConfig(cfg *Config) Option {
	return func(v *Validator) error {
		if cfg == nil {
			return cashval.ErrInvalidParameter
		}
		v.cfg = cfg
		return nil
	}
}

// New creates a banknote validator session over an open port. The session
// takes ownership of the port and closes it in Close.
func New(port cashval.Port, opts ...Option) (*Validator, error) {
	v := &Validator{
		port: port,
		log:  zap.NewNop(),
		cfg:  DefaultConfig(),
		// 0x80 marks "unknown" until the first SYNC forces seq=0.
		seq:           0x80,
		state:         StateDisconnected,
		channelValues: make(map[int]int),
		currency:      "EUR",
		multiplier:    1,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// State returns the bring-up state of the session
func (v *Validator) State() State {
	return v.state
}

// Enable puts the validator into accepting state
func (v *Validator) Enable(ctx context.Context) error {
	return v.command(ctx, cmdEnable, nil)
}

// Disable stops note acceptance; safe to call during teardown
func (v *Validator) Disable(ctx context.Context) error {
	return v.command(ctx, cmdDisable, nil)
}

// Hold refreshes the escrow hold timeout for the given duration. The
// device caps the window at 10 seconds.
func (v *Validator) Hold(ctx context.Context, d time.Duration) error {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > 10_000 {
		ms = 10_000
	}
	params := make([]byte, 2)
	binary.LittleEndian.PutUint16(params, uint16(ms))
	return v.command(ctx, cmdHold, params)
}

// LastRejectReason queries the device for the most recent rejection reason
func (v *Validator) LastRejectReason(ctx context.Context) (string, error) {
	payload, err := v.exchange(ctx, cmdLastRejectCode, nil)
	if err != nil {
		return "", err
	}
	if !isOK(payload) || len(payload) < 4 {
		return "", cashval.ErrCommandRejected
	}
	code := payload[3]
	if reason, found := rejectReasons[code]; found {
		return reason, nil
	}
	return fmt.Sprintf("0x%02X", code), nil
}

// SetHostProtocolVersion asks the device to use the given protocol level
func (v *Validator) SetHostProtocolVersion(ctx context.Context, version byte) error {
	if err := v.command(ctx, cmdHostProtocolVersion, []byte{version}); err != nil {
		return err
	}
	v.statusf("host protocol version set to %d", version)
	return nil
}

// PollOnce sends a single POLL and decodes the reply into events.
//
// Two event kinds trigger driver-level behavior beyond plain surfacing: a
// device reset re-runs the bring-up chain inline and abandons the rest of
// the buffer (all post-reset device state is unknown), and a disable
// triggers a rate-limited re-enable so a genuine fault is not hammered.
func (v *Validator) PollOnce(ctx context.Context) ([]Event, error) {
	payload, err := v.exchange(ctx, cmdPoll, nil)
	if err != nil {
		return nil, err
	}
	if !isOK(payload) || len(payload) <= 3 {
		return nil, nil
	}

	events := v.decodeEvents(payload[3:])
	for i, ev := range events {
		switch ev.Kind {
		case EventReset:
			v.statusf("device reset; reinitializing")
			if err := v.Init(ctx); err != nil {
				v.errorf("reinit failed after reset: %v", err)
			} else {
				v.statusf("reinitialized after reset")
			}
			return events[:i+1], nil
		case EventDisabled:
			if time.Since(v.lastEnableAttempt) >= v.cfg.EnableBackoff {
				v.lastEnableAttempt = time.Now()
				if err := v.Enable(ctx); err != nil {
					v.log.Debug("auto re-enable failed", zap.Error(err))
				}
			}
		}
	}
	return events, nil
}

// Close disables the validator best-effort and closes the port. The port
// close is unconditional regardless of whether disable succeeded.
func (v *Validator) Close() error {
	if v.port == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), v.cfg.CommandDeadline)
	defer cancel()
	if err := v.Disable(ctx); err != nil {
		v.log.Debug("disable on close failed", zap.Error(err))
	}
	err := v.port.Close()
	v.port = nil
	v.state = StateDisconnected
	if err != nil {
		return fmt.Errorf("close port: %w", err)
	}
	return nil
}

// command runs an exchange that only needs a generic OK reply
func (v *Validator) command(ctx context.Context, cmd byte, params []byte) error {
	payload, err := v.exchange(ctx, cmd, params)
	if err != nil {
		return err
	}
	if !isOK(payload) {
		return fmt.Errorf("%w: command %#02x status %#02x", cashval.ErrCommandRejected, cmd, payload[2])
	}
	return nil
}

// setInhibits enables channels via bitmask, LSB = channel 1. A nil mask
// enables every known channel; with an unknown channel count a two-byte
// all-enabled mask is sent, which NV9-class devices expect as a minimum.
func (v *Validator) setInhibits(ctx context.Context, inhibits []byte) error {
	if inhibits == nil {
		total := v.numChannels
		if total == 0 {
			total = 16
		}
		size := (total + 7) / 8
		if size < 2 {
			size = 2
		}
		mask := make([]byte, size)
		for i := range mask {
			mask[i] = 0xFF
		}
		if v.numChannels > 0 && v.numChannels%8 != 0 {
			// Trim spare bits when the exact channel count is known.
			mask[len(mask)-1] &= 1<<(v.numChannels%8) - 1
		}
		inhibits = mask
	}
	return v.command(ctx, cmdSetInhibits, inhibits)
}

// setupRequest asks the validator for its dataset.
//
// The reply is accepted but not parsed: observed firmware behavior never
// exercised the dataset fields, so the session keeps the default channel
// table rather than trusting an unverifiable parser. Hook here to fill
// numChannels, multiplier, currency and channelValues.
func (v *Validator) setupRequest(ctx context.Context) error {
	return v.command(ctx, cmdSetupRequest, nil)
}

func isOK(payload []byte) bool {
	return len(payload) >= 3 && payload[2] == respOK
}

func (v *Validator) statusf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.log.Info(msg)
	if v.OnStatus != nil {
		v.OnStatus(msg)
	}
}

func (v *Validator) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.log.Error(msg)
	if v.OnError != nil {
		v.OnError(msg)
	}
}
