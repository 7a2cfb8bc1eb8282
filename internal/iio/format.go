// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package iio

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Format describes how one channel's raw sample is encoded inside the scan
// buffer, mirroring the kernel's scan-element type string
// ("le:s16/32>>2"): storage-sized word, optional right shift, realbits of
// payload, signedness and endianness.
type Format struct {
	Signed    bool
	Bits      uint // payload bits after shifting
	Storage   uint // storage bits in the buffer
	Shift     uint
	BigEndian bool
}

// StorageBytes returns the channel's storage size in bytes.
func (f Format) StorageBytes() int { return int(f.Storage / 8) }

// ParseFormat parses a kernel scan-element type string such as
// "le:s16/32>>2" or "be:u10/16>>0".
func ParseFormat(s string) (Format, error) {
	var f Format
	rest := strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(rest, "le:"):
		rest = rest[3:]
	case strings.HasPrefix(rest, "be:"):
		f.BigEndian = true
		rest = rest[3:]
	}

	if rest == "" {
		return Format{}, fmt.Errorf("iio: empty scan type %q", s)
	}
	switch rest[0] {
	case 's':
		f.Signed = true
	case 'u':
	default:
		return Format{}, fmt.Errorf("iio: bad sign in scan type %q", s)
	}
	rest = rest[1:]

	bits, rest, ok := strings.Cut(rest, "/")
	if !ok {
		return Format{}, fmt.Errorf("iio: missing storage size in scan type %q", s)
	}
	storage, shiftStr, _ := strings.Cut(rest, ">>")

	// A repeat suffix ("/32X2") marks multi-value channels; only the first
	// value is decoded so the repeat count is dropped.
	storage, _, _ = strings.Cut(storage, "X")

	b, err := strconv.ParseUint(bits, 10, 8)
	if err != nil {
		return Format{}, fmt.Errorf("iio: bad realbits in scan type %q: %w", s, err)
	}
	st, err := strconv.ParseUint(storage, 10, 8)
	if err != nil {
		return Format{}, fmt.Errorf("iio: bad storagebits in scan type %q: %w", s, err)
	}
	var sh uint64
	if shiftStr != "" {
		sh, err = strconv.ParseUint(shiftStr, 10, 8)
		if err != nil {
			return Format{}, fmt.Errorf("iio: bad shift in scan type %q: %w", s, err)
		}
	}

	f.Bits = uint(b)
	f.Storage = uint(st)
	f.Shift = uint(sh)

	switch f.Storage {
	case 8, 16, 32, 64:
	default:
		return Format{}, fmt.Errorf("iio: unsupported storage size %d in %q", f.Storage, s)
	}
	if f.Bits == 0 || f.Bits+f.Shift > f.Storage {
		return Format{}, fmt.Errorf("iio: inconsistent scan type %q", s)
	}
	return f, nil
}

// DecodeInt64 converts a raw channel sample at the start of b into a
// signed integer: storage word load, shift, realbits mask, sign extension.
func (f Format) DecodeInt64(b []byte) int64 {
	var word uint64
	switch f.Storage {
	case 8:
		word = uint64(b[0])
	case 16:
		if f.BigEndian {
			word = uint64(binary.BigEndian.Uint16(b))
		} else {
			word = uint64(binary.LittleEndian.Uint16(b))
		}
	case 32:
		if f.BigEndian {
			word = uint64(binary.BigEndian.Uint32(b))
		} else {
			word = uint64(binary.LittleEndian.Uint32(b))
		}
	case 64:
		if f.BigEndian {
			word = binary.BigEndian.Uint64(b)
		} else {
			word = binary.LittleEndian.Uint64(b)
		}
	}

	word >>= f.Shift
	if f.Bits < 64 {
		word &= (uint64(1) << f.Bits) - 1
	}

	if f.Signed && f.Bits < 64 && word&(uint64(1)<<(f.Bits-1)) != 0 {
		word |= ^uint64(0) << f.Bits
	}
	return int64(word)
}
