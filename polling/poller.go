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

// Package polling drives a cash-acceptance device on a steady cadence,
// turning the device's pull-based PollOnce into a push-based event stream.
package polling

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the poll cadence used when none is configured
const DefaultInterval = 100 * time.Millisecond

// Device is one pollable cash-acceptance engine. E is the engine's event
// type. A Device is single-owner; the Poller becomes that owner for the
// duration of Run.
type Device[E any] interface {
	// Init brings the device to accepting state
	Init(ctx context.Context) error
	// PollOnce performs one poll exchange and returns new events
	PollOnce(ctx context.Context) ([]E, error)
	// Close disables the device best-effort and releases its port
	Close() error
}

// Config holds poller settings
type Config struct {
	// Interval is the poll cadence (default DefaultInterval)
	Interval time.Duration
	// Logger is the diagnostic logger (default: no-op)
	Logger *zap.Logger
}

// Poller runs one device's poll loop. Callbacks fire synchronously from
// the polling goroutine; slow callbacks delay the next poll.
type Poller[E any] struct {
	device Device[E]
	cfg    Config
	log    *zap.Logger

	// OnEvent receives each decoded event in order
	OnEvent func(event E)
	// OnStatus receives lifecycle notices
	OnStatus func(msg string)
	// OnError receives poll errors; polling continues after each one
	OnError func(err error)
}

// NewPoller creates a poller for a device. A nil config uses defaults.
func NewPoller[E any](device Device[E], cfg *Config) *Poller[E] {
	p := &Poller[E]{device: device}
	if cfg != nil {
		p.cfg = *cfg
	}
	if p.cfg.Interval <= 0 {
		p.cfg.Interval = DefaultInterval
	}
	p.log = p.cfg.Logger
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

// Run initializes the device and polls it until ctx is cancelled. The
// device is closed on the way out regardless of how the loop ends. An
// Init failure is fatal; poll failures are reported and polling carries
// on, since transient bus noise is routine on these devices.
//
// Polling aims at fixed targets rather than sleeping a fixed interval
// after each poll, so exchange latency does not stretch the cadence. When
// a poll overruns its slot, the schedule resets instead of replaying the
// missed ticks in a burst.
func (p *Poller[E]) Run(ctx context.Context) error {
	defer func() {
		if err := p.device.Close(); err != nil {
			p.log.Warn("device close failed", zap.Error(err))
		}
	}()

	if err := p.device.Init(ctx); err != nil {
		return fmt.Errorf("device init: %w", err)
	}
	p.status("polling started")

	next := time.Now().Add(p.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			p.status("polling stopped")
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		events, err := p.device.PollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.status("polling stopped")
				return ctx.Err()
			}
			p.log.Warn("poll failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError(err)
			}
		}
		for _, ev := range events {
			if p.OnEvent != nil {
				p.OnEvent(ev)
			}
		}

		next = next.Add(p.cfg.Interval)
		if !next.After(time.Now()) {
			next = time.Now().Add(p.cfg.Interval)
		}
	}
}

func (p *Poller[E]) status(msg string) {
	p.log.Info(msg)
	if p.OnStatus != nil {
		p.OnStatus(msg)
	}
}
