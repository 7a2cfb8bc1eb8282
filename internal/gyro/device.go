// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gyro

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// l3g4200d ioctl numbers (base 77, int-sized argument each).
const (
	iocWrite = 1
	iocRead  = 2

	ioctlBase = 77
)

func ioc(dir, nr uint) uint {
	const sizeInt = 4
	return dir<<30 | sizeInt<<16 | ioctlBase<<8 | nr
}

var (
	ioctlSetDelay  = ioc(iocWrite, 0)
	ioctlGetDelay  = ioc(iocRead, 1)
	ioctlSetEnable = ioc(iocWrite, 2)
	ioctlGetEnable = ioc(iocRead, 3)
)

// CharDevice drives the gyroscope control node through its ioctl interface.
type CharDevice struct {
	path string
	f    *os.File
}

// NewCharDevice wraps the control node at path without opening it.
func NewCharDevice(path string) *CharDevice {
	return &CharDevice{path: path}
}

// Open opens the control node. A second open is a no-op.
func (d *CharDevice) Open() error {
	if d.f != nil {
		return nil
	}
	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.path, err)
	}
	d.f = f
	return nil
}

// Close releases the control node if it is open.
func (d *CharDevice) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// IsOpen reports whether the control node is currently held open.
func (d *CharDevice) IsOpen() bool { return d.f != nil }

// Enabled queries the driver's current enable state.
func (d *CharDevice) Enabled() (bool, error) {
	if d.f == nil {
		return false, os.ErrClosed
	}
	v, err := unix.IoctlGetInt(int(d.f.Fd()), ioctlGetEnable)
	if err != nil {
		return false, fmt.Errorf("ioctl get enable: %w", err)
	}
	return v != 0, nil
}

// SetEnabled issues the driver enable/disable command.
func (d *CharDevice) SetEnabled(enabled bool) error {
	if d.f == nil {
		return os.ErrClosed
	}
	v := 0
	if enabled {
		v = 1
	}
	if err := unix.IoctlSetPointerInt(int(d.f.Fd()), ioctlSetEnable, v); err != nil {
		return fmt.Errorf("ioctl set enable: %w", err)
	}
	return nil
}

// SetDelayMillis sets the driver sampling period in milliseconds.
func (d *CharDevice) SetDelayMillis(ms int) error {
	if d.f == nil {
		return os.ErrClosed
	}
	if err := unix.IoctlSetPointerInt(int(d.f.Fd()), ioctlSetDelay, ms); err != nil {
		return fmt.Errorf("ioctl set delay: %w", err)
	}
	return nil
}

// OpenInputStream opens the gyroscope's input event node non-blocking so
// ReadEvents never stalls waiting on the kernel queue. The returned file is
// both the byte stream and the poll descriptor source.
func OpenInputStream(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		f.Close()
		return nil, fmt.Errorf("set %s non-blocking: %w", path, err)
	}
	return f, nil
}
