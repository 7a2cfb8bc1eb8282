// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mpu adapts a directly attached MPU9250 inertial unit to the
// uniform sensor adapter contract. The device is polled on the caller's
// schedule; there is no readiness descriptor.
package mpu

import (
	"math"
	"time"

	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// Sensitivity tables indexed by the configured range setting (0-3).
var (
	accelLSBPerG   = [4]float64{16384, 8192, 4096, 2048}
	gyroLSBPerDps  = [4]float64{131, 65.5, 32.8, 16.4}
	accelFullScale = [4]float64{2, 4, 8, 16} // g
)

const (
	gravity  = 9.80665
	degToRad = math.Pi / 180.0
)

// Adapter exposes one MPU9250 as a six-axis sensor. Data slots 0-2 carry
// acceleration in m/s² and slots 3-5 angular rate in rad/s.
type Adapter struct {
	src  Source
	desc hal.Descriptor

	accelScale float64 // m/s² per LSB
	gyroScale  float64 // rad/s per LSB

	enabled      bool
	periodNs     int64
	flushPending bool
}

// NewAdapter wraps src under the given handle. accelRange and gyroRange are
// the range settings the source was initialized with; they determine the
// LSB scale factors applied to raw counts.
func NewAdapter(src Source, handle int32, accelRange, gyroRange byte) *Adapter {
	if accelRange > 3 {
		accelRange = 3
	}
	if gyroRange > 3 {
		gyroRange = 3
	}

	a := &Adapter{
		src:        src,
		accelScale: gravity / accelLSBPerG[accelRange],
		gyroScale:  degToRad / gyroLSBPerDps[gyroRange],
	}
	a.desc = hal.Descriptor{
		Handle:         handle,
		Name:           "MPU9250 6-axis IMU",
		Vendor:         "InvenSense",
		StringType:     "relabs.sensor.imu6",
		Version:        1,
		Type:           hal.TypeDevicePrivateBase,
		MaxRange:       accelFullScale[accelRange] * gravity,
		Resolution:     a.accelScale,
		PowerMilliAmps: 3.5,
		MinDelayMicros: 1000,
		Flags:          hal.ReportingModeContinuous,
	}
	return a
}

func (a *Adapter) Descriptor() hal.Descriptor { return a.desc }

func (a *Adapter) HasSensor(handle int32) bool { return handle == a.desc.Handle }

// SetEnable starts or stops sampling. The underlying transport stays open
// across disable; the register interface has no meaningful teardown.
func (a *Adapter) SetEnable(handle int32, enable bool) error {
	if !a.HasSensor(handle) {
		return hal.ErrUnknownHandle
	}
	a.enabled = enable
	return nil
}

// SetDelay records the polling period. The device free-runs internally;
// the period is honored by the caller's tick loop.
func (a *Adapter) SetDelay(handle int32, periodNs int64) error {
	if !a.HasSensor(handle) {
		return hal.ErrUnknownHandle
	}
	if periodNs < 0 {
		return hal.ErrInvalidArgument
	}
	a.periodNs = periodNs
	return nil
}

// Period returns the polling period last set through SetDelay.
func (a *Adapter) Period() time.Duration { return time.Duration(a.periodNs) }

// Flush queues a flush-complete marker. There is no hardware FIFO in this
// configuration, so the marker is emitted by the next ReadEvents call.
func (a *Adapter) Flush(handle int32) error {
	if !a.HasSensor(handle) {
		return hal.ErrUnknownHandle
	}
	a.flushPending = true
	return nil
}

// ReadEvents emits a pending flush-complete marker and, when enabled, one
// fresh six-axis sample read directly from the device.
func (a *Adapter) ReadEvents(out []hal.Event) (int, error) {
	if len(out) == 0 {
		return 0, hal.ErrInvalidArgument
	}

	n := 0
	if a.flushPending {
		out[n] = hal.NewFlushComplete(a.desc.Handle)
		a.flushPending = false
		n++
	}
	if !a.enabled || n == len(out) {
		return n, nil
	}

	raw, err := a.src.ReadRaw()
	if err != nil {
		return n, err
	}

	ev := hal.Event{
		Version:   hal.EventVersion,
		Handle:    a.desc.Handle,
		Type:      a.desc.Type,
		Status:    hal.StatusAccuracyHigh,
		Timestamp: time.Now().UnixNano(),
	}
	ev.Data[0] = float32(float64(raw.Ax) * a.accelScale)
	ev.Data[1] = float32(float64(raw.Ay) * a.accelScale)
	ev.Data[2] = float32(float64(raw.Az) * a.accelScale)
	ev.Data[3] = float32(float64(raw.Gx) * a.gyroScale)
	ev.Data[4] = float32(float64(raw.Gy) * a.gyroScale)
	ev.Data[5] = float32(float64(raw.Gz) * a.gyroScale)
	out[n] = ev
	n++
	return n, nil
}

// PollFd returns -1: the adapter is timer-driven.
func (a *Adapter) PollFd() int { return -1 }
