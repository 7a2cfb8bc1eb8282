// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hal

// Reporting-mode bits inside Descriptor.Flags.
const (
	ReportingModeMask       uint32 = 0x0E
	ReportingModeContinuous uint32 = 0x00
	ReportingModeOnChange   uint32 = 0x02
	ReportingModeOneShot    uint32 = 0x04
	ReportingModeSpecial    uint32 = 0x06

	FlagWakeUp uint32 = 0x01
)

// Descriptor is the static identity of one sensor. It is populated once at
// adapter construction (missing device attributes degrade to defaults) and
// exposed read-only to the framework for enumeration.
type Descriptor struct {
	Handle     int32  `json:"handle"`
	Name       string `json:"name"`
	Vendor     string `json:"vendor"`
	StringType string `json:"string_type"`
	Version    int32  `json:"version"`
	Type       Type   `json:"type"`

	MaxRange       float64 `json:"max_range"`
	Resolution     float64 `json:"resolution"`
	PowerMilliAmps float64 `json:"power_ma"`

	MinDelayMicros int32  `json:"min_delay_us"`
	MaxDelayMicros uint32 `json:"max_delay_us"`

	FIFOReservedEventCount uint32 `json:"fifo_reserved"`
	FIFOMaxEventCount      uint32 `json:"fifo_max"`

	Flags uint32 `json:"flags"`
}

// ReportingMode extracts the reporting-mode bits from Flags.
func (d Descriptor) ReportingMode() uint32 {
	return d.Flags & ReportingModeMask
}

// IsOneShot reports whether the sensor triggers once and then disables
// itself. Flush is invalid for such sensors.
func (d Descriptor) IsOneShot() bool {
	return d.ReportingMode() == ReportingModeOneShot
}
