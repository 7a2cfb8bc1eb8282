// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package evdev reads Linux input events from a character-device byte
// stream and presents them one at a time with internal bulk buffering.
package evdev

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Input event types and the relative-axis codes used by the gyro adapter.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvRel uint16 = 0x02
	EvAbs uint16 = 0x03

	RelRX uint16 = 0x03
	RelRY uint16 = 0x04
	RelRZ uint16 = 0x05
)

// eventSize is the on-wire size of struct input_event on 64-bit kernels:
// two 8-byte timeval words, u16 type, u16 code, s32 value.
const eventSize = 24

// InputEvent is one decoded kernel input event.
type InputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// TimeNanos returns the event timestamp in nanoseconds.
func (e InputEvent) TimeNanos() int64 {
	return e.Sec*1_000_000_000 + e.Usec*1_000
}

func decodeEvent(b []byte) InputEvent {
	return InputEvent{
		Sec:   int64(binary.LittleEndian.Uint64(b[0:8])),
		Usec:  int64(binary.LittleEndian.Uint64(b[8:16])),
		Type:  binary.LittleEndian.Uint16(b[16:18]),
		Code:  binary.LittleEndian.Uint16(b[18:20]),
		Value: int32(binary.LittleEndian.Uint32(b[20:24])),
	}
}

// Reader buffers input events read in bulk so callers can consume them one
// at a time without issuing one read syscall per event.
type Reader struct {
	events []InputEvent // decoded, not yet consumed
	raw    []byte       // bulk read buffer
	rem    []byte       // partial trailing event from the last fill
}

// NewReader returns a Reader that buffers up to capacity events per fill.
func NewReader(capacity int) *Reader {
	if capacity < 1 {
		capacity = 1
	}
	return &Reader{
		events: make([]InputEvent, 0, capacity),
		// Room for capacity whole events plus a partial trailing event
		// carried over from the previous fill.
		raw: make([]byte, capacity*eventSize+eventSize-1),
	}
}

// Fill bulk-reads from src and decodes whole events into the internal
// buffer, keeping any partial trailing bytes for the next call. It returns
// the number of events added. End of data (EOF or a would-block read) is
// reported as zero events with a nil error; other read failures are hard
// errors.
func (r *Reader) Fill(src io.Reader) (int, error) {
	free := cap(r.events) - len(r.events)
	if free == 0 {
		return 0, nil
	}

	buf := r.raw[:len(r.rem)+free*eventSize]
	copy(buf, r.rem)

	n, err := src.Read(buf[len(r.rem):])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, syscall.EAGAIN) {
			return 0, nil
		}
		return 0, fmt.Errorf("input event read: %w", err)
	}

	total := len(r.rem) + n
	added := 0
	pos := 0
	for ; pos+eventSize <= total; pos += eventSize {
		r.events = append(r.events, decodeEvent(buf[pos:pos+eventSize]))
		added++
	}

	// A read may end mid-event; stash the tail.
	r.rem = append(r.rem[:0], buf[pos:total]...)
	return added, nil
}

// Pop returns the next buffered event, or ok=false when none remain.
func (r *Reader) Pop() (InputEvent, bool) {
	if len(r.events) == 0 {
		return InputEvent{}, false
	}
	ev := r.events[0]
	copy(r.events, r.events[1:])
	r.events = r.events[:len(r.events)-1]
	return ev, true
}

// Pending returns how many decoded events are waiting to be consumed.
func (r *Reader) Pending() int {
	return len(r.events)
}
