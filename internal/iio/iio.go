// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package iio adapts bus-discovered industrial-I/O sensors — devices that
// expose channelized scan buffers and named metadata attributes — to the
// uniform hal.Adapter contract. The bus is modelled by small Device /
// Channel / Buffer interfaces with a sysfs-backed implementation; tests
// substitute synthetic devices.
package iio

import (
	"strconv"
	"strings"
)

// TimestampChannel is the channel id whose samples decode directly into
// the event timestamp instead of a data slot.
const TimestampChannel = "timestamp"

// Device is one entry on the hardware bus.
type Device interface {
	// ID is the stable bus identifier (e.g. "iio:device0").
	ID() string

	// Name is the device-reported name, possibly empty.
	Name() string

	// IsTrigger reports whether this entry is a trigger rather than a
	// sensor.
	IsTrigger() bool

	// Channels returns the device's channels in bus-reported order.
	Channels() []Channel

	// HasAttr reports whether the named device attribute exists.
	HasAttr(name string) bool

	// ReadAttr returns the raw string value of a device attribute.
	ReadAttr(name string) (string, error)

	// WriteAttr writes a device attribute.
	WriteAttr(name, value string) error

	// CreateBuffer allocates a scan buffer holding the given number of
	// samples. The buffer must be non-blocking: readiness is signalled
	// through its poll descriptor, never by stalling a read.
	CreateBuffer(samples int) (Buffer, error)
}

// Channel is one measurement lane within a device's sample layout.
type Channel interface {
	// ID is the channel identifier ("anglvel_x", "timestamp", ...).
	ID() string

	// Index is the channel's slot in the scan layout, or negative for
	// channels that never appear in the buffer.
	Index() int

	// IsOutput reports whether the channel is an output (actuator) lane.
	IsOutput() bool

	// IsScanElement reports whether the channel can appear in the scan
	// buffer.
	IsScanElement() bool

	// Format describes the channel's raw binary sample encoding.
	Format() Format

	// SetEnabled includes or excludes the channel from the scan buffer.
	SetEnabled(enabled bool) error
}

// Buffer is a hardware-managed region of consecutive raw multi-channel
// samples.
type Buffer interface {
	// Refill reads the next batch of samples and returns how many bytes
	// are available. No data yet is (0, nil); a failed read is an error.
	Refill() (int, error)

	// Data returns the bytes of the last refill.
	Data() []byte

	// PollFd returns the descriptor to poll for sample readiness.
	PollFd() int

	// Destroy disables and releases the buffer.
	Destroy() error
}

// AttrInt64 reads an integer attribute, returning def when the attribute
// is missing or malformed. Construction-time metadata reads degrade to
// defaults instead of failing the adapter.
func AttrInt64(d Device, name string, def int64) int64 {
	s, err := d.ReadAttr(name)
	if err != nil {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// AttrFloat reads a floating-point attribute with a default.
func AttrFloat(d Device, name string, def float64) float64 {
	s, err := d.ReadAttr(name)
	if err != nil {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// AttrString reads a string attribute guarded by a length attribute, the
// protocol greybus devices use for variable-length metadata. A missing or
// non-positive length yields def.
func AttrString(d Device, lenAttr, strAttr, def string) string {
	n := AttrInt64(d, lenAttr, -1)
	if n <= 0 {
		return def
	}
	s, err := d.ReadAttr(strAttr)
	if err != nil {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// WriteAttrInt64 writes an integer attribute.
func WriteAttrInt64(d Device, name string, v int64) error {
	return d.WriteAttr(name, strconv.FormatInt(v, 10))
}

// WriteAttrFloat writes a floating-point attribute.
func WriteAttrFloat(d Device, name string, v float64) error {
	return d.WriteAttr(name, strconv.FormatFloat(v, 'f', 6, 64))
}
