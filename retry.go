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

package cashval

import (
	"context"
	"time"
)

// RetryOperation is a function executed under retry control.
// Returns: data, shouldRetry, error
//   - data: the result if successful
//   - shouldRetry: true if the operation should be retried
//   - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior for exchange operations
type RetryConfig struct {
	// OnRetry runs before each retry attempt; a non-nil error aborts
	OnRetry func() error
	// MaxRetries is the number of additional attempts after the first
	MaxRetries int
	// RetryDelay is slept between attempts
	RetryDelay time.Duration
}

// DefaultRetryConfig matches the retry budget both device protocols expect:
// one command is attempted three times in total before recovery kicks in.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}
}

// Retry executes an operation with bounded retries.
// The context is observed between attempts, not during one: an in-flight
// exchange runs to its own deadline before cancellation is honored.
func Retry[T any](ctx context.Context, config *RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T
	if config == nil {
		config = DefaultRetryConfig()
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}
		if config.RetryDelay > 0 {
			time.Sleep(config.RetryDelay)
		}
	}

	return zero, NewTimeoutError("retry exhausted", "")
}
