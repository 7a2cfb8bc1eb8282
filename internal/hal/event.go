// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hal defines the uniform measurement event model and the adapter
// contract that every sensor backend (input-event devices, IIO scan-buffer
// devices, periph-attached IMUs) presents to the framework layer.
package hal

// MaxDataSlots is the number of typed data slots carried by one event.
// Channel indices reported by a device must fit below this bound.
const MaxDataSlots = 16

// EventVersion tags ordinary measurement events; MetaDataVersion tags
// flush-complete meta events.
const (
	EventVersion    int32 = 1
	MetaDataVersion int32 = 2
)

// Type identifies the semantic kind of a sensor or event.
type Type int32

const (
	TypeMetaData      Type = 0
	TypeAccelerometer Type = 1
	TypeMagneticField Type = 2
	TypeGyroscope     Type = 4
	TypePressure      Type = 6

	// TypeDevicePrivateBase is the default for devices that do not report
	// a recognized semantic type.
	TypeDevicePrivateBase Type = 0x10000
)

// Status is the accuracy/status field of a measurement event.
type Status int32

const (
	StatusUnreliable   Status = 0
	StatusAccuracyLow  Status = 1
	StatusAccuracyMed  Status = 2
	StatusAccuracyHigh Status = 3
)

// MetaWhat distinguishes meta event payloads.
type MetaWhat int32

// MetaFlushComplete signals that all samples queued before the matching
// flush request have been delivered.
const MetaFlushComplete MetaWhat = 1

// MetaData is the payload of a TypeMetaData event.
type MetaData struct {
	What   MetaWhat `json:"what"`
	Handle int32    `json:"handle"`
}

// Event is one timestamped, typed, scaled measurement (or one flush-complete
// marker). One event corresponds to exactly one sample; events are not
// mutated after emission.
type Event struct {
	Version   int32                 `json:"version"`
	Handle    int32                 `json:"handle"`
	Type      Type                  `json:"type"`
	Status    Status                `json:"status"`
	Timestamp int64                 `json:"timestamp_ns"`
	Data      [MaxDataSlots]float32 `json:"data"`
	Flags     uint32                `json:"flags,omitempty"`
	Meta      MetaData              `json:"meta,omitempty"`
}

// NewFlushComplete builds the meta event acknowledging a flush for handle.
func NewFlushComplete(handle int32) Event {
	return Event{
		Version: MetaDataVersion,
		Handle:  0,
		Type:    TypeMetaData,
		Meta:    MetaData{What: MetaFlushComplete, Handle: handle},
	}
}
