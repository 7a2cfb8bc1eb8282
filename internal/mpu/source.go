// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Source reads raw six-axis samples from an inertial measurement unit.
type Source interface {
	ReadRaw() (Raw, error)
}

type spiSource struct {
	imu *mpu9250.MPU9250
}

// NewSPISource initializes an MPU9250 over SPI and applies the given
// accelerometer and gyroscope range settings (0-3, see the range tables
// in the config package).
func NewSPISource(spiDev, csPin string, accelRange, gyroRange byte) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("imu: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("imu: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("imu: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("imu: initialization: %w", err)
	}

	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("imu: set accel range: %w", err)
	}
	log.Printf("imu: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	if err := imu.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("imu: set gyro range: %w", err)
	}
	log.Printf("imu: gyroscope range set to %d (±%d°/s)", gyroRange, []int{250, 500, 1000, 2000}[gyroRange])

	// Self-test and calibration are non-fatal: a unit that fails them still
	// produces usable data for bring-up.
	if testResult, err := imu.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("imu self-test passed:")
		log.Printf("  Accelerometer deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.AccelDeviation.X, testResult.AccelDeviation.Y, testResult.AccelDeviation.Z)
		log.Printf("  Gyroscope deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.GyroDeviation.X, testResult.GyroDeviation.Y, testResult.GyroDeviation.Z)
	}

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("imu calibration complete")
	}

	return &spiSource{imu: imu}, nil
}

// ReadRaw reads accelerometer and gyroscope registers.
func (s *spiSource) ReadRaw() (Raw, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Raw{}, fmt.Errorf("imu accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Raw{}, fmt.Errorf("imu accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Raw{}, fmt.Errorf("imu accel Z: %w", err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return Raw{}, fmt.Errorf("imu gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return Raw{}, fmt.Errorf("imu gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return Raw{}, fmt.Errorf("imu gyro Z: %w", err)
	}

	return Raw{Ax: ax, Ay: ay, Az: az, Gx: gx, Gy: gy, Gz: gz}, nil
}
