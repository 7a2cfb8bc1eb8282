// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package iio

import (
	"fmt"
	"log"

	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// bufferSamples is the scan-buffer depth allocated on enable.
const bufferSamples = 32

// minBatchPeriodNs is the finest sampling period Batch accepts.
const minBatchPeriodNs = 1_000 // 1 us

// Sensor adapts one channelized scan-buffer device to the hal.Adapter
// contract. Each Sensor represents exactly one sensor handle.
type Sensor struct {
	ctx *Context // shared bus context, pinned for the adapter's lifetime
	dev Device

	desc   hal.Descriptor
	scale  float64
	offset float64

	buf Buffer

	// Channel layout of the current buffer. Offsets are buffer-instance
	// specific, so they are recomputed whenever the buffer is recreated
	// and dropped when it is destroyed.
	offsets map[int]int
	stride  int

	// Partial-buffer cursor: samples decoded but not yet delivered, and
	// the byte position of the next one.
	remaining int
	pos       int
}

// NewSensor constructs the adapter for dev with the given handle. The
// calibration scale/offset pair is read first since the derived range and
// resolution attributes depend on it; every other attribute falls back to
// a documented default when absent, so the adapter stays usable with
// incomplete device metadata.
func NewSensor(ctx *Context, dev Device, handle int32) *Sensor {
	s := &Sensor{ctx: ctx, dev: dev}

	s.scale = AttrFloat(dev, "in_scale", 1.0)
	s.offset = AttrFloat(dev, "in_offset", 0.0)

	s.desc = hal.Descriptor{
		Handle:     handle,
		Name:       AttrString(dev, "greybus_name_len", "greybus_name", "Unknown Name"),
		Vendor:     AttrString(dev, "vendor_len", "vendor", "Unknown Vendor"),
		StringType: AttrString(dev, "string_type_len", "string_type", "Unknown Type"),
		Version:    int32(AttrInt64(dev, "greybus_version", 0)),
		Type:       hal.Type(AttrInt64(dev, "greybus_type", int64(hal.TypeDevicePrivateBase))),

		MaxRange:       s.convert(AttrInt64(dev, "max_range", 0)),
		Resolution:     s.convert(AttrInt64(dev, "resolution", 0)),
		PowerMilliAmps: float64(AttrInt64(dev, "power_uA", 0)) * 1e-3,

		MinDelayMicros: int32(AttrInt64(dev, "min_delay_us", 0)),
		MaxDelayMicros: uint32(AttrInt64(dev, "max_delay_us", 0)),

		FIFOReservedEventCount: uint32(AttrInt64(dev, "fifo_rec", 0)),
		FIFOMaxEventCount:      uint32(AttrInt64(dev, "fifo_mec", 0)),

		Flags: uint32(AttrInt64(dev, "flags", 0)),
	}
	return s
}

// convert applies the device-reported affine calibration to a raw value.
func (s *Sensor) convert(raw int64) float64 {
	return float64(raw)*s.scale + s.offset
}

// Descriptor returns the sensor's static identity.
func (s *Sensor) Descriptor() hal.Descriptor { return s.desc }

// HasSensor reports whether handle names this sensor.
func (s *Sensor) HasSensor(handle int32) bool { return handle == s.desc.Handle }

// Device returns the underlying bus device.
func (s *Sensor) Device() Device { return s.dev }

// SetEnable activates every scan-eligible input channel and allocates the
// non-blocking scan buffer (readiness is driven by an external poll on the
// buffer descriptor, never by a blocking drain here). Disabling tears the
// buffer down; the channel layout is dropped with it and recomputed for
// the next buffer instance.
func (s *Sensor) SetEnable(handle int32, enable bool) error {
	if !s.HasSensor(handle) {
		return hal.ErrUnknownHandle
	}

	if enable {
		for _, ch := range s.dev.Channels() {
			if !ch.IsOutput() && ch.IsScanElement() {
				if err := ch.SetEnabled(true); err != nil {
					log.Printf("iio: %s: enable channel %s: %v", s.dev.ID(), ch.ID(), err)
				}
			}
		}
		if s.buf == nil {
			buf, err := s.dev.CreateBuffer(bufferSamples)
			if err != nil {
				return fmt.Errorf("iio: %s: create buffer: %w", s.dev.ID(), err)
			}
			s.buf = buf
			s.offsets, s.stride = ScanLayout(s.dev.Channels())
			s.remaining, s.pos = 0, 0
		}
		return nil
	}

	for _, ch := range s.dev.Channels() {
		if !ch.IsOutput() && ch.IsScanElement() {
			if err := ch.SetEnabled(false); err != nil {
				log.Printf("iio: %s: disable channel %s: %v", s.dev.ID(), ch.ID(), err)
			}
		}
	}
	if s.buf != nil {
		if err := s.buf.Destroy(); err != nil {
			log.Printf("iio: %s: destroy buffer: %v", s.dev.ID(), err)
		}
		s.buf = nil
		s.offsets = nil
		s.stride = 0
		s.remaining, s.pos = 0, 0
	}
	return nil
}

// Batch configures the sampling period and maximum report latency. The
// latency write is best-effort; the call's result is the result of the
// sampling-frequency write.
func (s *Sensor) Batch(handle int32, _ int, periodNs, maxLatencyNs int64) error {
	if !s.HasSensor(handle) {
		return hal.ErrUnknownHandle
	}
	if periodNs < minBatchPeriodNs {
		return hal.ErrInvalidArgument
	}

	if err := WriteAttrInt64(s.dev, "max_latency_ns", maxLatencyNs); err != nil {
		log.Printf("iio: %s: set max_latency_ns: %v", s.dev.ID(), err)
	}

	freq := 1e9 / float64(periodNs)
	if err := WriteAttrFloat(s.dev, "in_sampling_frequency", freq); err != nil {
		log.Printf("iio: %s: set in_sampling_frequency: %v", s.dev.ID(), err)
		return fmt.Errorf("iio: %s: set sampling frequency: %w", s.dev.ID(), err)
	}
	return nil
}

// ReadEvents decodes up to len(out) samples from the scan buffer. Samples
// left over from a previous partial delivery are drained before the buffer
// is refilled. Each enabled channel is decoded with the device-supplied
// conversion; the timestamp channel lands in the event timestamp, every
// other channel is calibrated into the data slot of its declared index.
func (s *Sensor) ReadEvents(out []hal.Event) (int, error) {
	if len(out) < 1 {
		return 0, hal.ErrInvalidArgument
	}
	if s.buf == nil {
		// Disabled: nothing queued, not an error.
		return 0, nil
	}

	if s.offsets == nil {
		s.offsets, s.stride = ScanLayout(s.dev.Channels())
	}
	if s.stride == 0 {
		return 0, nil
	}

	if s.remaining == 0 {
		n, err := s.buf.Refill()
		if err != nil {
			return 0, fmt.Errorf("iio: %s: refill buffer: %w", s.dev.ID(), err)
		}
		s.remaining = n / s.stride
		s.pos = 0
	}

	data := s.buf.Data()
	chans := s.dev.Channels()

	copied := 0
	for ; copied < s.remaining && copied < len(out); copied++ {
		ev := hal.Event{
			Version: hal.EventVersion,
			Handle:  s.desc.Handle,
			Type:    s.desc.Type,
		}

		sample := data[s.pos : s.pos+s.stride]
		for c, ch := range chans {
			if c >= hal.MaxDataSlots {
				break
			}
			idx := ch.Index()
			if idx < 0 {
				continue
			}
			off, ok := s.offsets[idx]
			if !ok {
				continue
			}
			raw := ch.Format().DecodeInt64(sample[off:])
			if ch.ID() == TimestampChannel {
				ev.Timestamp = raw
			} else if idx < hal.MaxDataSlots {
				ev.Data[idx] = float32(s.convert(raw))
			}
		}

		out[copied] = ev
		s.pos += s.stride
	}

	s.remaining -= copied
	return copied, nil
}

// Flush writes the device's flush trigger attribute. One-shot sensors are
// rejected: the framework protocol forbids flushing them. No local
// flush-complete marker is queued; completion surfaces through the data
// channel per the device firmware contract.
func (s *Sensor) Flush(handle int32) error {
	if !s.HasSensor(handle) {
		return hal.ErrUnknownHandle
	}
	if s.desc.IsOneShot() {
		return hal.ErrOneShot
	}
	if err := WriteAttrInt64(s.dev, "flush", 1); err != nil {
		return fmt.Errorf("iio: %s: flush: %w", s.dev.ID(), err)
	}
	return nil
}

// PollFd returns the scan buffer's poll descriptor, or -1 while disabled.
func (s *Sensor) PollFd() int {
	if s.buf == nil {
		return -1
	}
	return s.buf.PollFd()
}
