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

// Package cctalk implements the checksummed polling protocol used by
// G13-class coin validators: length-delimited framing with host/device
// addressing, buffered-credit polling with a rolling event counter, and
// coin identification by 6-character type identifiers.
package cctalk

import (
	"context"
	"fmt"
	"time"

	cashval "github.com/openkiosk/go-cashval"
	"go.uber.org/zap"
)

// Config holds the protocol timing constants. Serial devices on this bus
// echo the host's own bytes, so every exchange drains its echo before the
// reply is read.
type Config struct {
	// ReadTimeout is the reply deadline for one exchange
	ReadTimeout time.Duration
	// TurnaroundGap is the pause between write and echo drain
	TurnaroundGap time.Duration
	// EchoTimeout is the window for draining the host's own echoed bytes
	EchoTimeout time.Duration
	// ReadChunkTimeout is the per-read window while assembling a reply
	ReadChunkTimeout time.Duration
}

// DefaultConfig returns bus-friendly ccTalk timings
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:      1 * time.Second,
		TurnaroundGap:    30 * time.Millisecond,
		EchoTimeout:      120 * time.Millisecond,
		ReadChunkTimeout: 20 * time.Millisecond,
	}
}

// DeviceIDs holds the identity strings a validator reports
type DeviceIDs struct {
	Manufacturer string
	Product      string
	Software     string
}

// Status is a small snapshot of the device's acceptance configuration
type Status struct {
	IDs           DeviceIDs
	Inhibits      []byte
	MasterInhibit byte
}

// Validator is one coin validator session. It exclusively owns its serial
// port and is single-owner: all methods must be called from one goroutine.
type Validator struct {
	port    cashval.Port
	log     *zap.Logger
	cfg     *Config
	coinIDs map[int]string

	// OnStatus receives human-readable progress notices
	OnStatus func(msg string)
	// OnError receives advisory error text; polling keeps running
	OnError func(msg string)

	// lastCounter is the rolling 8-bit credit counter; -1 until the
	// baseline poll after bring-up
	lastCounter int

	host       byte
	addr       byte
	tailNewest bool
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

// WithAddress fixes the device bus address, skipping address discovery
func WithAddress(addr byte) Option {
	return func(v *Validator) error {
		if addr == broadcastAddress {
			return fmt.Errorf("%w: device address 0 is the broadcast address", cashval.ErrInvalidParameter)
		}
		v.addr = addr
		return nil
	}
}

// WithHostAddress sets the host bus address (default 1)
func WithHostAddress(host byte) Option {
	return func(v *Validator) error {
		v.host = host
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

// WithTailNewestSlots flips the buffered-credit slot ordering for device
// builds that report the newest event at the tail instead of the head.
func WithTailNewestSlots() Option {
	return func(v *Validator) error {
		v.tailNewest = true
		return nil
	}
}

// New creates a coin validator session over an open port. The session
// takes ownership of the port and closes it in Close. With no WithAddress
// option the device address is discovered during Init.
func New(port cashval.Port, opts ...Option) (*Validator, error) {
	v := &Validator{
		port:        port,
		log:         zap.NewNop(),
		cfg:         DefaultConfig(),
		host:        1,
		coinIDs:     make(map[int]string),
		lastCounter: -1,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Address returns the device bus address (0 before discovery)
func (v *Validator) Address() byte {
	return v.addr
}

// Init brings the validator up to accepting state: discover the device
// address when none is configured, report identity, open all inhibits,
// build the coin-type map and baseline the rolling credit counter.
func (v *Validator) Init(ctx context.Context) error {
	if v.port == nil {
		return cashval.ErrPortNotOpen
	}

	if v.addr == broadcastAddress {
		addr, err := v.discoverAddress(ctx)
		if err != nil {
			return fmt.Errorf("address discovery: %w", err)
		}
		v.addr = addr
		v.statusf("coin validator found at address %d", addr)
	}

	if ids, err := v.IDs(ctx); err == nil {
		v.statusf("device: %s %s (software %s)", ids.Manufacturer, ids.Product, ids.Software)
	} else {
		v.log.Warn("identity query failed", zap.Error(err))
	}

	if err := v.enableAll(ctx); err != nil {
		return fmt.Errorf("enable acceptance: %w", err)
	}

	v.buildCoinTypeMap(ctx)

	if err := v.baselineCounter(ctx); err != nil {
		v.log.Warn("counter baseline failed; first poll will baseline instead", zap.Error(err))
	}
	v.statusf("coin validator enabled")
	return nil
}

// PollOnce reads the buffered credits once and returns only the events
// that are new since the previous poll.
func (v *Validator) PollOnce(ctx context.Context) ([]Event, error) {
	counter, pairs, err := v.readBufferedCredit(ctx)
	if err != nil {
		return nil, err
	}
	events := v.newEvents(ctx, counter, pairs)
	for _, ev := range events {
		if ev.Kind == EventError {
			v.errorf("%s", ev)
		} else {
			v.statusf("%s", ev)
		}
	}
	return events, nil
}

// Close raises the master inhibit best-effort and closes the port. The
// port close is unconditional regardless of whether disable succeeded.
func (v *Validator) Close() error {
	if v.port == nil {
		return nil
	}
	if v.addr != broadcastAddress {
		ctx, cancel := context.WithTimeout(context.Background(), v.cfg.ReadTimeout)
		defer cancel()
		if err := v.setMasterInhibit(ctx, false); err != nil {
			v.log.Debug("disable on close failed", zap.Error(err))
		}
	}
	err := v.port.Close()
	v.port = nil
	if err != nil {
		return fmt.Errorf("close port: %w", err)
	}
	return nil
}

// IDs queries the manufacturer, product and software revision strings
func (v *Validator) IDs(ctx context.Context) (DeviceIDs, error) {
	var ids DeviceIDs
	man, err := v.exchange(ctx, v.addr, hdrRequestManufacturerID, nil)
	if err != nil {
		return ids, err
	}
	ids.Manufacturer = string(frameData(man))
	if prod, err := v.exchange(ctx, v.addr, hdrRequestProductCode, nil); err == nil {
		ids.Product = string(frameData(prod))
	}
	if soft, err := v.exchange(ctx, v.addr, hdrRequestSoftwareRevision, nil); err == nil {
		ids.Software = string(frameData(soft))
	}
	return ids, nil
}

// Status returns identity plus the current inhibit configuration
func (v *Validator) Status(ctx context.Context) (*Status, error) {
	ids, err := v.IDs(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{IDs: ids}
	if inh, err := v.InhibitStatus(ctx); err == nil {
		st.Inhibits = inh
	}
	if mi, err := v.MasterInhibit(ctx); err == nil {
		st.MasterInhibit = mi
	}
	return st, nil
}

// SetSorterPaths maps coin types 1..5 to sorter paths 1..5
func (v *Validator) SetSorterPaths(ctx context.Context, paths []int) error {
	if len(paths) != creditSlots {
		return fmt.Errorf("%w: need exactly %d sorter paths", cashval.ErrInvalidParameter, creditSlots)
	}
	data := make([]byte, len(paths))
	for i, p := range paths {
		if p < 1 || p > 5 {
			return fmt.Errorf("%w: sorter path %d out of range", cashval.ErrInvalidParameter, p)
		}
		data[i] = byte(p)
	}
	_, err := v.exchange(ctx, v.addr, hdrModifySorterPaths, data)
	return err
}

// InhibitStatus reads the per-channel inhibit mask
func (v *Validator) InhibitStatus(ctx context.Context) ([]byte, error) {
	reply, err := v.exchange(ctx, v.addr, hdrRequestInhibitStatus, nil)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), frameData(reply)...), nil
}

// MasterInhibit reads the master inhibit flag
func (v *Validator) MasterInhibit(ctx context.Context) (byte, error) {
	reply, err := v.exchange(ctx, v.addr, hdrRequestMasterInhibit, nil)
	if err != nil {
		return 0, err
	}
	data := frameData(reply)
	if len(data) < 1 {
		return 0, cashval.ErrFrameCorrupted
	}
	return data[0], nil
}

// enableAll allows acceptance: all coin inhibits open, master inhibit on
func (v *Validator) enableAll(ctx context.Context) error {
	if err := v.setInhibitsAll(ctx, true); err != nil {
		return err
	}
	return v.setMasterInhibit(ctx, true)
}

func (v *Validator) setInhibitsAll(ctx context.Context, enable bool) error {
	mask := []byte{0x00, 0x00}
	if enable {
		mask = []byte{0xFF, 0xFF}
	}
	_, err := v.exchange(ctx, v.addr, hdrModifyInhibitStatus, mask)
	return err
}

func (v *Validator) setMasterInhibit(ctx context.Context, allow bool) error {
	val := []byte{0x00}
	if allow {
		val = []byte{0x01}
	}
	_, err := v.exchange(ctx, v.addr, hdrModifyMasterInhibit, val)
	return err
}

// buildCoinTypeMap eagerly resolves identifiers for types 1..16, skipping
// empty slots. Best-effort: unresolved types retry lazily on first credit.
func (v *Validator) buildCoinTypeMap(ctx context.Context) {
	for t := 1; t <= 16; t++ {
		if _, known := v.coinIDs[t]; known {
			continue
		}
		id, err := v.RequestCoinID(ctx, t)
		if err != nil {
			continue
		}
		v.coinIDs[t] = id
	}
}

// baselineCounter records the rolling counter without emitting historical
// events.
func (v *Validator) baselineCounter(ctx context.Context) error {
	counter, _, err := v.readBufferedCredit(ctx)
	if err != nil {
		return err
	}
	v.lastCounter = counter
	return nil
}

// readBufferedCredit returns the rolling counter and the five (type, path)
// pairs ordered newest-first.
func (v *Validator) readBufferedCredit(ctx context.Context) (int, []creditPair, error) {
	reply, err := v.exchange(ctx, v.addr, hdrReadBufferedCredit, nil)
	if err != nil {
		return 0, nil, err
	}
	data := frameData(reply)
	if len(data) != 1+2*creditSlots {
		return 0, nil, fmt.Errorf("%w: buffered credit payload %d bytes", cashval.ErrFrameCorrupted, len(data))
	}

	pairs := make([]creditPair, creditSlots)
	for i := range pairs {
		pairs[i] = creditPair{
			coinType: int(data[1+2*i]),
			path:     int(data[2+2*i]),
		}
	}
	if v.tailNewest {
		for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		}
	}
	return int(data[0]), pairs, nil
}

// discoverAddress finds the device when no fixed address is configured:
// the broadcast address poll is tried several times (the bus has no
// collision detection), then a short list of conventional addresses is
// probed with an identity query.
func (v *Validator) discoverAddress(ctx context.Context) (byte, error) {
	addr, err := cashval.Retry(ctx, &cashval.RetryConfig{MaxRetries: 2}, func() (byte, bool, error) {
		reply, err := v.exchange(ctx, broadcastAddress, hdrAddressPoll, nil)
		if err != nil {
			v.log.Debug("broadcast address poll failed", zap.Error(err))
			return 0, true, nil
		}
		data := frameData(reply)
		if len(data) != 1 {
			return 0, true, nil
		}
		return data[0], false, nil
	})
	if err == nil {
		return addr, nil
	}

	for _, candidate := range fallbackAddresses {
		if _, err := v.exchange(ctx, candidate, hdrRequestManufacturerID, nil); err == nil {
			return candidate, nil
		}
	}
	return 0, cashval.ErrDeviceNotFound
}

// exchange writes one frame, drains the local echo, then reads and
// validates the reply. A failed exchange returns an error the caller
// treats as "no reply"; there is no multi-step recovery on this bus.
func (v *Validator) exchange(ctx context.Context, dest, header byte, data []byte) ([]byte, error) {
	if v.port == nil {
		return nil, cashval.ErrPortNotOpen
	}

	pkt := encodeFrame(dest, v.host, header, data)
	if err := v.port.ResetInputBuffer(); err != nil {
		v.log.Debug("input flush failed", zap.Error(err))
	}
	if _, err := v.port.Write(pkt); err != nil {
		return nil, cashval.NewTransportError("write", "", err, cashval.ErrorTypeTransient)
	}

	sleepCtx(ctx, v.cfg.TurnaroundGap)
	v.drainEcho(ctx, len(pkt))

	deadline := time.Now().Add(v.cfg.ReadTimeout)
	hdr := make([]byte, headerLen)
	if err := v.readExact(ctx, hdr, deadline); err != nil {
		return nil, err
	}
	rest := make([]byte, int(hdr[1])+1)
	if err := v.readExact(ctx, rest, deadline); err != nil {
		return nil, err
	}

	reply := append(hdr, rest...)
	if !sumValid(reply) {
		return nil, fmt.Errorf("%w: reply to header %d", cashval.ErrChecksumMismatch, header)
	}
	// The reply must be addressed to us and, for non-broadcast requests,
	// sourced from the device we asked.
	if reply[0] != v.host || (dest != broadcastAddress && reply[2] != dest) {
		return nil, fmt.Errorf("%w: reply dest %d src %d", cashval.ErrAddressMismatch, reply[0], reply[2])
	}
	return reply, nil
}

// readExact fills buf from the port, tolerating partial reads, until the
// deadline elapses.
func (v *Validator) readExact(ctx context.Context, buf []byte, deadline time.Time) error {
	got := 0
	for got < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return cashval.NewTimeoutError("read reply", "")
		}
		window := v.cfg.ReadChunkTimeout
		if window > remaining {
			window = remaining
		}
		if err := v.port.SetReadTimeout(window); err != nil {
			return cashval.NewTransportError("set read timeout", "", err, cashval.ErrorTypeTransient)
		}
		n, err := v.port.Read(buf[got:])
		if err != nil {
			return cashval.NewTransportError("read", "", err, cashval.ErrorTypeTransient)
		}
		got += n
	}
	return nil
}

// drainEcho discards up to n echoed bytes, stopping early once the line
// goes quiet.
func (v *Validator) drainEcho(ctx context.Context, n int) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(v.cfg.EchoTimeout)
	for got < n && time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		if err := v.port.SetReadTimeout(v.cfg.ReadChunkTimeout); err != nil {
			return
		}
		read, err := v.port.Read(buf[got:])
		if err != nil || read == 0 {
			return
		}
		got += read
	}
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

// sleepCtx sleeps for d unless ctx is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
