package iio

import (
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
	}{
		{"le:s16/16>>0", Format{Signed: true, Bits: 16, Storage: 16}},
		{"le:s16/32>>2", Format{Signed: true, Bits: 16, Storage: 32, Shift: 2}},
		{"be:u10/16>>0", Format{Bits: 10, Storage: 16, BigEndian: true}},
		{"le:s64/64>>0", Format{Signed: true, Bits: 64, Storage: 64}},
		{"u8/8", Format{Bits: 8, Storage: 8}},
		{"le:s16/32X2>>0", Format{Signed: true, Bits: 16, Storage: 32}},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			is := is.New(t)
			got, err := ParseFormat(c.in)
			is.NoErr(err)
			is.Equal(got, c.want)
		})
	}
}

func TestParseFormatRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "le:", "x16/32", "le:s16", "le:s24/24>>0", "le:s40/32>>0"} {
		if _, err := ParseFormat(in); err == nil {
			t.Errorf("ParseFormat(%q): expected error", in)
		}
	}
}

func TestDecodeInt64(t *testing.T) {
	is := is.New(t)

	// Signed 16-bit little-endian.
	f := Format{Signed: true, Bits: 16, Storage: 16}
	b := make([]byte, 2)
	v16 := int16(-1234)
	binary.LittleEndian.PutUint16(b, uint16(v16))
	is.Equal(f.DecodeInt64(b), int64(-1234))

	// Unsigned with shift: 12 valid bits stored in 16, shifted by 4.
	f = Format{Bits: 12, Storage: 16, Shift: 4}
	binary.LittleEndian.PutUint16(b, 0xABC0)
	is.Equal(f.DecodeInt64(b), int64(0xABC))

	// Signed with shift: sign bit lands in the masked payload.
	f = Format{Signed: true, Bits: 12, Storage: 16, Shift: 4}
	binary.LittleEndian.PutUint16(b, 0xFFF0)
	is.Equal(f.DecodeInt64(b), int64(-1))

	// Big-endian 32-bit.
	f = Format{Signed: true, Bits: 32, Storage: 32, BigEndian: true}
	b4 := make([]byte, 4)
	v32 := int32(-99999)
	binary.BigEndian.PutUint32(b4, uint32(v32))
	is.Equal(f.DecodeInt64(b4), int64(-99999))

	// 64-bit timestamp.
	f = Format{Signed: true, Bits: 64, Storage: 64}
	b8 := make([]byte, 8)
	binary.LittleEndian.PutUint64(b8, uint64(int64(1_234_567_890_123)))
	is.Equal(f.DecodeInt64(b8), int64(1_234_567_890_123))
}
