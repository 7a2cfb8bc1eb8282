package iio

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// scanDevice builds a synthetic two-axis device with a timestamp channel:
// int16 lanes at offsets 0 and 2, the int64 timestamp aligned at 8, for a
// 16-byte sample stride.
func scanDevice(attrs map[string]string) *fakeDevice {
	s16 := Format{Signed: true, Bits: 16, Storage: 16}
	s64 := Format{Signed: true, Bits: 64, Storage: 64}
	return &fakeDevice{
		id:    "iio:device0",
		name:  "synthetic",
		attrs: attrs,
		chans: []*fakeChannel{
			{id: "anglvel_x", index: 0, scan: true, format: s16},
			{id: "anglvel_y", index: 1, scan: true, format: s16},
			{id: "timestamp", index: 2, scan: true, format: s64},
		},
	}
}

func sample(x, y int16, ts int64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:2], uint16(x))
	binary.LittleEndian.PutUint16(b[2:4], uint16(y))
	binary.LittleEndian.PutUint64(b[8:16], uint64(ts))
	return b
}

func TestDescriptorDefaults(t *testing.T) {
	is := is.New(t)

	s := NewSensor(nil, scanDevice(nil), 10)
	d := s.Descriptor()
	is.Equal(d.Handle, int32(10))
	is.Equal(d.Name, "Unknown Name")
	is.Equal(d.Vendor, "Unknown Vendor")
	is.Equal(d.StringType, "Unknown Type")
	is.Equal(d.Type, hal.TypeDevicePrivateBase)
	is.Equal(s.scale, 1.0)
	is.Equal(s.offset, 0.0)
}

func TestDescriptorFromAttributes(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(map[string]string{
		"in_scale":         "0.5",
		"in_offset":        "2.0",
		"greybus_name_len": "9",
		"greybus_name":     "gyro-left",
		"vendor_len":       "6",
		"vendor":           "Relabs",
		"greybus_type":     "4",
		"greybus_version":  "3",
		"max_range":        "1000",
		"resolution":       "2",
		"power_uA":         "1500",
		"min_delay_us":     "5000",
		"max_delay_us":     "200000",
		"fifo_rec":         "16",
		"fifo_mec":         "128",
		"flags":            "0",
	})
	s := NewSensor(nil, dev, 11)
	d := s.Descriptor()

	is.Equal(d.Name, "gyro-left")
	is.Equal(d.Vendor, "Relabs")
	is.Equal(d.Type, hal.TypeGyroscope)
	is.Equal(d.Version, int32(3))
	is.Equal(d.MaxRange, 1000*0.5+2.0) // affine conversion applied
	is.Equal(d.Resolution, 2*0.5+2.0)
	is.Equal(d.PowerMilliAmps, 1.5) // uA to mA
	is.Equal(d.MinDelayMicros, int32(5000))
	is.Equal(d.MaxDelayMicros, uint32(200000))
	is.Equal(d.FIFOReservedEventCount, uint32(16))
	is.Equal(d.FIFOMaxEventCount, uint32(128))
}

func TestZeroLengthStringFallsBack(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(map[string]string{
		"vendor_len": "0",
		"vendor":     "ShouldNotBeUsed",
	})
	s := NewSensor(nil, dev, 1)
	is.Equal(s.Descriptor().Vendor, "Unknown Vendor")
}

func TestSetEnableLifecycle(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	s := NewSensor(nil, dev, 5)

	is.True(errors.Is(s.SetEnable(99, true), hal.ErrUnknownHandle))
	is.Equal(s.PollFd(), -1)

	is.NoErr(s.SetEnable(5, true))
	for _, ch := range dev.chans {
		is.True(ch.enabled)
	}
	is.Equal(dev.creates, 1)
	is.Equal(s.PollFd(), 42)

	// Re-enabling does not allocate a second buffer.
	is.NoErr(s.SetEnable(5, true))
	is.Equal(dev.creates, 1)

	is.NoErr(s.SetEnable(5, false))
	for _, ch := range dev.chans {
		is.True(!ch.enabled)
	}
	is.True(dev.buf.destroyed)
	is.Equal(s.PollFd(), -1)
}

func TestBufferAllocationFailure(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	dev.createErr = errors.New("ENOMEM")
	s := NewSensor(nil, dev, 5)

	err := s.SetEnable(5, true)
	is.True(err != nil)
	is.Equal(s.PollFd(), -1)

	// The adapter stays in a consistent disabled-buffer state.
	n, rerr := s.ReadEvents(make([]hal.Event, 4))
	is.NoErr(rerr)
	is.Equal(n, 0)
}

func TestReadEventsDecode(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(map[string]string{
		"in_scale":     "0.25",
		"in_offset":    "-3",
		"greybus_type": "4",
	})
	s := NewSensor(nil, dev, 5)
	is.NoErr(s.SetEnable(5, true))

	frame := append(sample(100, -200, 111), sample(-8, 16, 222)...)
	dev.buf.frames = [][]byte{frame}

	out := make([]hal.Event, 4)
	n, err := s.ReadEvents(out)
	is.NoErr(err)
	is.Equal(n, 2)

	is.Equal(out[0].Handle, int32(5))
	is.Equal(out[0].Type, hal.TypeGyroscope)
	is.Equal(out[0].Timestamp, int64(111))
	is.Equal(out[0].Data[0], float32(100*0.25-3))
	is.Equal(out[0].Data[1], float32(-200*0.25-3))
	is.Equal(out[0].Data[2], float32(0)) // timestamp slot stays zero

	is.Equal(out[1].Timestamp, int64(222))
	is.Equal(out[1].Data[0], float32(-8*0.25-3))
	is.Equal(out[1].Data[1], float32(16*0.25-3))
}

func TestPartialBufferCursor(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	s := NewSensor(nil, dev, 5)
	is.NoErr(s.SetEnable(5, true))

	frame := append(sample(1, 1, 1), sample(2, 2, 2)...)
	frame = append(frame, sample(3, 3, 3)...)
	frame = append(frame, sample(4, 4, 4)...)
	dev.buf.frames = [][]byte{frame}

	// First call delivers at most the requested capacity.
	out := make([]hal.Event, 3)
	n, err := s.ReadEvents(out)
	is.NoErr(err)
	is.Equal(n, 3)
	is.Equal(dev.buf.refills, 1)
	is.Equal(out[2].Timestamp, int64(3))

	// Second call drains the remainder without refilling.
	n, err = s.ReadEvents(out)
	is.NoErr(err)
	is.Equal(n, 1)
	is.Equal(dev.buf.refills, 1)
	is.Equal(out[0].Timestamp, int64(4))

	// Cursor exhausted: the next call refills again.
	n, err = s.ReadEvents(out)
	is.NoErr(err)
	is.Equal(n, 0)
	is.Equal(dev.buf.refills, 2)
}

func TestRefillFailureIsHardError(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	s := NewSensor(nil, dev, 5)
	is.NoErr(s.SetEnable(5, true))
	dev.buf.refillErr = errors.New("EIO")

	_, err := s.ReadEvents(make([]hal.Event, 4))
	is.True(err != nil)
}

func TestReadEventsRejectsEmptyOutput(t *testing.T) {
	is := is.New(t)

	s := NewSensor(nil, scanDevice(nil), 5)
	_, err := s.ReadEvents(nil)
	is.True(errors.Is(err, hal.ErrInvalidArgument))
}

func TestLayoutRecomputedAfterReenable(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	s := NewSensor(nil, dev, 5)

	is.NoErr(s.SetEnable(5, true))
	is.True(s.offsets != nil)

	is.NoErr(s.SetEnable(5, false))
	is.True(s.offsets == nil) // layout is buffer-instance specific

	is.NoErr(s.SetEnable(5, true))
	is.True(s.offsets != nil)
	is.Equal(s.stride, 16)
}

func TestBatch(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	s := NewSensor(nil, dev, 5)

	is.True(errors.Is(s.Batch(99, 0, 10_000_000, 0), hal.ErrUnknownHandle))
	is.True(errors.Is(s.Batch(5, 0, 999, 0), hal.ErrInvalidArgument)) // below 1 us

	is.NoErr(s.Batch(5, 0, 2_000_000, 500_000_000))
	is.Equal(dev.written["max_latency_ns"], "500000000")
	is.Equal(dev.written["in_sampling_frequency"], "500.000000") // 1/2ms

	// Latency write failure is logged but non-fatal; frequency write
	// failure is the call's result.
	dev.writeErr = map[string]error{"max_latency_ns": errors.New("EACCES")}
	is.NoErr(s.Batch(5, 0, 1_000_000, 0))

	dev.writeErr = map[string]error{"in_sampling_frequency": errors.New("EACCES")}
	is.True(s.Batch(5, 0, 1_000_000, 0) != nil)
}

func TestFlush(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(nil)
	s := NewSensor(nil, dev, 5)

	is.True(errors.Is(s.Flush(99), hal.ErrUnknownHandle))

	is.NoErr(s.Flush(5))
	is.Equal(dev.written["flush"], "1")

	dev.writeErr = map[string]error{"flush": errors.New("EIO")}
	is.True(s.Flush(5) != nil)
}

func TestFlushRejectedForOneShot(t *testing.T) {
	is := is.New(t)

	dev := scanDevice(map[string]string{"flags": "4"}) // one-shot reporting mode
	s := NewSensor(nil, dev, 5)

	is.True(errors.Is(s.Flush(5), hal.ErrOneShot))
	_, flushed := dev.written["flush"]
	is.True(!flushed)
}
