// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package iio

import (
	"log"
	"sync/atomic"
	"time"
)

// DefaultSysfsRoot is where the kernel exposes industrial-I/O devices.
const DefaultSysfsRoot = "/sys/bus/iio/devices"

// defaultDevDir holds the buffer character devices.
const defaultDevDir = "/dev"

// contextTimeout bounds blocking operations the underlying connection may
// perform internally (e.g. during a refill); it does not bound adapter
// lifecycle calls.
const contextTimeout = 10 * time.Second

// Context is the process-wide connection to the sensor bus, shared by
// every adapter constructed against it and read-only after creation.
type Context struct {
	root    string
	devDir  string
	timeout time.Duration
	devices []Device
}

var contextCreated atomic.Bool

// CreateContext creates the single process-wide bus context. Only the
// first call can succeed; every later call returns nil unconditionally,
// whatever the first call's outcome, so a second native connection can
// never end up in ambiguous shared ownership. A nil result from the first
// call means the platform exposes no compatible bus — callers must treat
// that as "no such sensors present", not as an error.
func CreateContext() *Context {
	if !contextCreated.CompareAndSwap(false, true) {
		return nil
	}

	ctx, err := newContext(DefaultSysfsRoot, defaultDevDir)
	if err != nil {
		log.Printf("iio: no local context: %v", err)
		return nil
	}
	ctx.timeout = contextTimeout
	return ctx
}

// Devices returns the bus devices in bus-reported order.
func (c *Context) Devices() []Device { return c.devices }

// Timeout returns the bound applied to the connection's internal blocking
// operations.
func (c *Context) Timeout() time.Duration { return c.timeout }
