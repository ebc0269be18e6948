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

// cashwatch runs a banknote validator and a coin validator side by side
// and prints every accepted credit with a running total. It is the
// operator-facing harness for bringing up a cash-acceptance setup.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openkiosk/go-cashval/cctalk"
	"github.com/openkiosk/go-cashval/internal/logging"
	"github.com/openkiosk/go-cashval/polling"
	"github.com/openkiosk/go-cashval/ssp"
	"github.com/openkiosk/go-cashval/transport/serialport"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "cashwatch:", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()
	v.SetConfigName("cashwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/cashwatch")
	v.SetEnvPrefix("CASHWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("poll.interval", "100ms")
	v.SetDefault("bill.enabled", true)
	v.SetDefault("bill.port", "/dev/ttyUSB0")
	v.SetDefault("bill.address", 0)
	v.SetDefault("bill.protocol_version", 0)
	v.SetDefault("coin.enabled", true)
	v.SetDefault("coin.port", "/dev/ttyUSB1")
	v.SetDefault("coin.address", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := logging.New(logging.Config{
		Level: v.GetString("log.level"),
		File:  v.GetString("log.file"),
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := v.GetDuration("poll.interval")
	tally := &creditTally{log: log}

	var wg sync.WaitGroup
	started := 0

	if v.GetBool("bill.enabled") {
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runBills(ctx, v, log, tally, interval); err != nil && ctx.Err() == nil {
				log.Error("bill validator stopped", zap.Error(err))
				stop()
			}
		}()
	}

	if v.GetBool("coin.enabled") {
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runCoins(ctx, v, log, tally, interval); err != nil && ctx.Err() == nil {
				log.Error("coin validator stopped", zap.Error(err))
				stop()
			}
		}()
	}

	if started == 0 {
		return errors.New("both devices disabled in config")
	}

	wg.Wait()
	tally.report()
	return ctx.Err()
}

func runBills(ctx context.Context, v *viper.Viper, log *zap.Logger, tally *creditTally, interval time.Duration) error {
	port, err := serialport.Open(v.GetString("bill.port"))
	if err != nil {
		return err
	}

	opts := []ssp.Option{ssp.WithLogger(log.Named("ssp"))}
	if addr := v.GetInt("bill.address"); addr > 0 {
		opts = append(opts, ssp.WithAddress(byte(addr)))
	}
	if ver := v.GetInt("bill.protocol_version"); ver > 0 {
		opts = append(opts, ssp.WithHostProtocolVersion(byte(ver)))
	}

	validator, err := ssp.New(port, opts...)
	if err != nil {
		_ = port.Close()
		return err
	}

	poller := polling.NewPoller[ssp.Event](validator, &polling.Config{
		Interval: interval,
		Logger:   log.Named("bill-poll"),
	})
	poller.OnEvent = func(ev ssp.Event) {
		if ev.Kind == ssp.EventCredit {
			// Note channel values are whole currency units.
			tally.add("bill", ev.String(), ev.Value*100)
		}
	}
	return poller.Run(ctx)
}

func runCoins(ctx context.Context, v *viper.Viper, log *zap.Logger, tally *creditTally, interval time.Duration) error {
	port, err := serialport.Open(v.GetString("coin.port"))
	if err != nil {
		return err
	}

	opts := []cctalk.Option{cctalk.WithLogger(log.Named("cctalk"))}
	if addr := v.GetInt("coin.address"); addr > 0 {
		opts = append(opts, cctalk.WithAddress(byte(addr)))
	}

	validator, err := cctalk.New(port, opts...)
	if err != nil {
		_ = port.Close()
		return err
	}

	poller := polling.NewPoller[cctalk.Event](validator, &polling.Config{
		Interval: interval,
		Logger:   log.Named("coin-poll"),
	})
	poller.OnEvent = func(ev cctalk.Event) {
		if ev.Kind == cctalk.EventCredit {
			tally.add("coin", ev.String(), ev.ValueCents)
		}
	}
	return poller.Run(ctx)
}

// creditTally accumulates accepted value across both devices
type creditTally struct {
	log   *zap.Logger
	mu    sync.Mutex
	cents int
	count int
}

func (t *creditTally) add(source, detail string, cents int) {
	t.mu.Lock()
	t.cents += cents
	t.count++
	total := t.cents
	t.mu.Unlock()
	t.log.Info("credit",
		zap.String("source", source),
		zap.String("detail", detail),
		zap.Int("cents", cents),
		zap.String("total", formatCents(total)),
	)
}

func (t *creditTally) report() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.Info("session total",
		zap.Int("credits", t.count),
		zap.String("total", formatCents(t.cents)),
	)
}

func formatCents(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
