// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hal

import "errors"

// Sentinel errors returned by adapter operations. Device and system
// failures are returned as wrapped unix.Errno values instead; "no data yet"
// is not an error and is reported as zero events.
var (
	// ErrInvalidArgument covers bad capacities, negative delays and
	// sub-microsecond batch periods.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownHandle is returned when an operation names a handle the
	// adapter does not own.
	ErrUnknownHandle = errors.New("unknown sensor handle")

	// ErrOneShot is returned by Flush on one-shot sensors; the framework
	// protocol forbids flushing them.
	ErrOneShot = errors.New("flush invalid for one-shot sensor")
)

// Adapter presents one physical or logical sensor through the uniform
// enable/configure/read contract. All operations are synchronous and
// non-reentrant; the caller multiplexes readiness over PollFd and never
// invokes two operations on the same adapter concurrently.
type Adapter interface {
	// Descriptor returns the sensor's static identity.
	Descriptor() Descriptor

	// HasSensor reports whether this adapter owns the given handle.
	HasSensor(handle int32) bool

	// SetEnable starts or stops event production. Enabling acquires the
	// underlying device resources; disabling releases them.
	SetEnable(handle int32, enable bool) error

	// Flush requests a flush-complete marker for previously queued samples.
	Flush(handle int32) error

	// ReadEvents fills out with at most len(out) events and returns how
	// many were written. Zero with a nil error means no data is available
	// yet. An empty out slice is rejected with ErrInvalidArgument.
	ReadEvents(out []Event) (int, error)

	// PollFd returns the descriptor the caller should poll for readiness,
	// or -1 when the adapter has none (timer-driven backends).
	PollFd() int
}

// DelayAdapter is implemented by discrete-device adapters configured with a
// single sampling period.
type DelayAdapter interface {
	Adapter

	// SetDelay sets the sampling period in nanoseconds. Works regardless
	// of enabled state. Negative periods are rejected.
	SetDelay(handle int32, periodNs int64) error
}

// BatchAdapter is implemented by channelized adapters configured with a
// period plus a maximum report latency.
type BatchAdapter interface {
	Adapter

	// Batch sets the sampling period and maximum latency in nanoseconds.
	// Periods below one microsecond are rejected.
	Batch(handle int32, flags int, periodNs, maxLatencyNs int64) error
}
