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
	"time"

	cashval "github.com/openkiosk/go-cashval"
	"go.uber.org/zap"
)

// exchange transmits one command and waits for its CRC-valid reply.
//
// Retryable failures (write errors, read timeouts, bad frames) resend the
// same command up to the configured retry budget. When the budget is
// exhausted, exactly one recovery round runs: flush both I/O directions,
// send a bare SYNC, and on success force seq=0 and resend the original
// command once. On total failure the sequence bit is restored to its
// pre-attempt value; on success it toggles exactly once.
func (v *Validator) exchange(ctx context.Context, cmd byte, params []byte) ([]byte, error) {
	if v.port == nil {
		return nil, cashval.ErrPortNotOpen
	}

	deadline := v.cfg.CommandDeadline
	if cmd == cmdSetupRequest {
		// Setup replies are larger and slower.
		deadline = v.cfg.SetupDeadline
	}

	var lastErr error
	retryCfg := &cashval.RetryConfig{MaxRetries: v.cfg.Retries}
	payload, err := cashval.Retry(ctx, retryCfg, func() ([]byte, bool, error) {
		p, err := v.writeAndRead(ctx, cmd, params, deadline)
		if err != nil {
			if cashval.IsRetryable(err) {
				lastErr = err
				v.log.Debug("exchange attempt failed",
					zap.Uint8("cmd", cmd), zap.Error(err))
				return nil, true, nil
			}
			return nil, false, err
		}
		return p, false, nil
	})
	if err == nil {
		return v.finalize(payload), nil
	}

	if recovered, rerr := v.resyncAndResend(ctx, cmd, params); rerr == nil {
		return recovered, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, err
}

// resyncAndResend is the single recovery round after exhausted retries.
func (v *Validator) resyncAndResend(ctx context.Context, cmd byte, params []byte) ([]byte, error) {
	oldSeq := v.seq

	// Drop any garbage that might confuse SYNC or the resend.
	if err := cashval.FlushPort(v.port); err != nil {
		v.log.Debug("flush before resync failed", zap.Error(err))
	}
	time.Sleep(5 * time.Millisecond)

	sync, err := v.writeAndRead(ctx, cmdSync, nil, v.cfg.CommandDeadline)
	if err == nil && isOK(sync) {
		// After a successful SYNC the next command must carry seq=0.
		v.seq = 0x00
		payload, err := v.writeAndRead(ctx, cmd, params, v.cfg.CommandDeadline)
		if err == nil {
			v.log.Warn("exchange recovered via resync", zap.Uint8("cmd", cmd))
			return v.finalize(payload), nil
		}
	}

	v.seq = oldSeq
	return nil, cashval.NewTimeoutError("resync", "")
}

// writeAndRead performs one raw transmit/receive round with no retries
func (v *Validator) writeAndRead(ctx context.Context, cmd byte, params []byte, deadline time.Duration) ([]byte, error) {
	frame := encodeFrame(v.address&0x7F|v.seq&0x80, cmd, params)
	if _, err := v.port.Write(frame); err != nil {
		return nil, cashval.NewTransportError("write", "", err, cashval.ErrorTypeTransient)
	}
	return v.readResponse(ctx, deadline)
}

// readResponse assembles one frame from the wire, tolerating arbitrary
// fragmentation, until the deadline elapses.
func (v *Validator) readResponse(ctx context.Context, deadline time.Duration) ([]byte, error) {
	var dec decoder
	buf := make([]byte, 64)
	end := time.Now().Add(deadline)

	if err := v.port.SetReadTimeout(v.cfg.ReadChunkTimeout); err != nil {
		return nil, cashval.NewTransportError("set read timeout", "", err, cashval.ErrorTypeTransient)
	}

	for time.Now().Before(end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := v.port.Read(buf)
		if err != nil {
			return nil, cashval.NewTransportError("read", "", err, cashval.ErrorTypeTransient)
		}
		if n == 0 {
			// Read window expired with nothing buffered.
			continue
		}
		for _, b := range buf[:n] {
			payload, perr := dec.push(b)
			if perr != nil {
				return nil, perr
			}
			if payload != nil {
				return payload, nil
			}
		}
	}
	return nil, cashval.NewTimeoutError("read response", "")
}

// finalize sanity-checks the reply header and toggles the sequence bit.
// Address or sequence mismatches are retransmission artifacts: logged as
// warnings, never fatal.
func (v *Validator) finalize(payload []byte) []byte {
	addrSeq := payload[0]
	if addrSeq&0x7F != v.address&0x7F {
		v.log.Warn("reply address mismatch",
			zap.Uint8("got", addrSeq&0x7F), zap.Uint8("want", v.address&0x7F))
	}
	if addrSeq&0x80 != v.seq&0x80 {
		v.log.Warn("reply sequence bit mismatch (possible retransmit)")
	}
	v.seq ^= 0x80
	return payload
}
