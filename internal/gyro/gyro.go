// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gyro adapts a discrete gyroscope device node (ioctl control
// device plus an input-event stream) to the uniform hal.Adapter contract.
package gyro

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/relabs-tech/sensor_hub/internal/evdev"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// ControlDevice is the ioctl surface of the gyroscope driver. The real
// char-device implementation lives in device.go; tests substitute fakes.
type ControlDevice interface {
	Open() error
	Close() error
	IsOpen() bool
	Enabled() (bool, error)
	SetEnabled(enabled bool) error
	SetDelayMillis(ms int) error
}

// The driver reports angular rate at 70 mdps per LSB; events are converted
// to rad/s.
const convertGyro = (70.0 / 1000.0) * (math.Pi / 180.0)

const (
	convertPitch = convertGyro
	convertRoll  = convertGyro
	convertYaw   = convertGyro
)

// readerCapacity matches the bulk size the input stream is read with.
const readerCapacity = 32

// Adapter owns the enable/delay state of one fixed-purpose gyroscope node.
type Adapter struct {
	ctrl   ControlDevice
	stream io.Reader
	reader *evdev.Reader
	pollFd int

	desc    hal.Descriptor
	enabled bool

	pending      hal.Event // composed measurement awaiting its sync marker
	flushEvent   hal.Event
	flushPending bool
}

// NewAdapter builds the adapter and probes the driver: if the device
// already reports itself enabled the adapter starts enabled, otherwise the
// control handle is closed again so an idle device holds no resources.
func NewAdapter(handle int32, ctrl ControlDevice, stream io.Reader, pollFd int) *Adapter {
	a := &Adapter{
		ctrl:   ctrl,
		stream: stream,
		reader: evdev.NewReader(readerCapacity),
		pollFd: pollFd,
		desc: hal.Descriptor{
			Handle:     handle,
			Name:       "L3G4200D Gyroscope",
			Vendor:     "STMicroelectronics",
			StringType: "gyroscope",
			Type:       hal.TypeGyroscope,
			Flags:      hal.ReportingModeContinuous,
		},
	}

	a.pending = hal.Event{
		Version: hal.EventVersion,
		Handle:  handle,
		Type:    hal.TypeGyroscope,
		Status:  hal.StatusAccuracyHigh,
	}
	a.flushEvent = hal.NewFlushComplete(handle)

	if err := ctrl.Open(); err == nil {
		if on, err := ctrl.Enabled(); err == nil && on {
			a.enabled = true
		}
		if !a.enabled {
			ctrl.Close()
		}
	}
	return a
}

// Descriptor returns the gyroscope's static identity.
func (a *Adapter) Descriptor() hal.Descriptor { return a.desc }

// HasSensor reports whether handle names this gyroscope.
func (a *Adapter) HasSensor(handle int32) bool { return handle == a.desc.Handle }

// Enabled reports the adapter's current state.
func (a *Adapter) Enabled() bool { return a.enabled }

// SetEnable transitions the device between enabled and disabled. The handle
// is not checked: this adapter kind owns exactly one fixed device node.
// State is updated only when the driver command succeeds.
func (a *Adapter) SetEnable(_ int32, enable bool) error {
	if enable == a.enabled {
		return nil
	}

	if enable {
		if err := a.ctrl.Open(); err != nil {
			return fmt.Errorf("gyro: open control device: %w", err)
		}
		if err := a.ctrl.SetEnabled(true); err != nil {
			return fmt.Errorf("gyro: enable: %w", err)
		}
		a.enabled = true
		return nil
	}

	err := a.ctrl.SetEnabled(false)
	if err == nil {
		a.enabled = false
	}
	a.ctrl.Close()
	if err != nil {
		return fmt.Errorf("gyro: disable: %w", err)
	}
	return nil
}

// SetDelay sets the sampling period. The period is truncated to whole
// milliseconds. When the adapter is disabled the control device is opened
// only for the duration of the call so the externally visible resource
// footprint is unchanged.
func (a *Adapter) SetDelay(_ int32, periodNs int64) error {
	if periodNs < 0 {
		return hal.ErrInvalidArgument
	}
	ms := int(periodNs / 1_000_000)

	transient := !a.enabled && !a.ctrl.IsOpen()
	if transient {
		if err := a.ctrl.Open(); err != nil {
			return fmt.Errorf("gyro: open control device: %w", err)
		}
	}

	err := a.ctrl.SetDelayMillis(ms)

	if !a.enabled {
		a.ctrl.Close()
	}
	if err != nil {
		return fmt.Errorf("gyro: set delay: %w", err)
	}
	return nil
}

// Flush marks a flush as pending. It always succeeds; the flush-complete
// marker is delivered on the next ReadEvents call regardless of enabled
// state.
func (a *Adapter) Flush(_ int32) error {
	a.flushPending = true
	return nil
}

// ReadEvents drains the input stream: relative-axis events accumulate into
// the pending measurement, a sync event stamps it and (only while enabled)
// emits it. A pending flush emits exactly one flush-complete marker first,
// even while disabled.
func (a *Adapter) ReadEvents(out []hal.Event) (int, error) {
	if len(out) < 1 {
		return 0, hal.ErrInvalidArgument
	}

	n := 0
	if a.flushPending {
		a.flushPending = false
		out[n] = a.flushEvent
		n++
	}

	if _, err := a.reader.Fill(a.stream); err != nil {
		return n, fmt.Errorf("gyro: %w", err)
	}

	for n < len(out) {
		ev, ok := a.reader.Pop()
		if !ok {
			break
		}
		switch ev.Type {
		case evdev.EvRel:
			a.processAxis(ev.Code, ev.Value)
		case evdev.EvSyn:
			a.pending.Timestamp = ev.TimeNanos()
			if a.enabled {
				out[n] = a.pending
				n++
			}
		default:
			log.Printf("gyro: unknown input event (type=%d, code=%d)", ev.Type, ev.Code)
		}
	}

	return n, nil
}

// processAxis folds one raw relative-axis value into the pending
// measurement. Axis mapping follows the driver: pitch reports Y, roll
// reports X, yaw reports Z.
func (a *Adapter) processAxis(code uint16, value int32) {
	switch code {
	case evdev.RelRX:
		a.pending.Data[1] = float32(value) * convertPitch
	case evdev.RelRY:
		a.pending.Data[0] = float32(value) * convertRoll
	case evdev.RelRZ:
		a.pending.Data[2] = float32(value) * convertYaw
	}
}

// PollFd returns the input stream descriptor the caller polls for
// readiness.
func (a *Adapter) PollFd() int { return a.pollFd }
