// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package iio

import "log"

// IsUsable decides whether a bus device is a genuine sensor rather than a
// trigger or calibration-only interface. Triggers and devices without the
// greybus identification attribute are excluded outright. The rest must
// carry at least 3 non-output channels: timestamp, one data channel, and
// the sampling-frequency lane the kernel miscategorizes as input. This is
// a deliberate approximation, not an exact classifier; devices with
// unusual channel layouts may be falsely rejected.
func IsUsable(dev Device) bool {
	if dev.IsTrigger() {
		return false
	}
	if !dev.HasAttr("greybus_type") {
		return false
	}

	chans := dev.Channels()
	outputs := 0
	for _, ch := range chans {
		if ch.IsOutput() {
			outputs++
		}
	}
	return len(chans)-outputs >= 3
}

// Registry owns the set of sensor adapters discovered on the bus.
type Registry struct {
	base    int32
	sensors []*Sensor
}

// NewRegistry returns a registry assigning handles starting at base.
func NewRegistry(base int32) *Registry {
	return &Registry{base: base}
}

// Update rebuilds the sensor set from the bus. The previous set is cleared
// unconditionally; devices are visited in bus-reported order and each
// accepted device gets handle base+busIndex, so handle stability across
// calls follows bus enumeration order.
func (r *Registry) Update(ctx *Context) {
	if ctx == nil {
		return
	}

	r.sensors = nil
	for i, dev := range ctx.Devices() {
		if !IsUsable(dev) {
			log.Printf("iio: skipping non-sensor device %s", dev.ID())
			continue
		}
		s := NewSensor(ctx, dev, r.base+int32(i))
		r.sensors = append(r.sensors, s)
		log.Printf("iio: added sensor %d (%s, %q)", s.desc.Handle, dev.ID(), s.desc.Name)
	}
	log.Printf("iio: %d sensors", len(r.sensors))
}

// Sensors returns the current adapters in discovery order.
func (r *Registry) Sensors() []*Sensor { return r.sensors }

// ByHandle looks up the adapter owning handle, or nil.
func (r *Registry) ByHandle(handle int32) *Sensor {
	for _, s := range r.sensors {
		if s.HasSensor(handle) {
			return s
		}
	}
	return nil
}
