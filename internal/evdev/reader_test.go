package evdev

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/matryer/is"
)

func encodeEvent(ev InputEvent) []byte {
	b := make([]byte, eventSize)
	binary.LittleEndian.PutUint64(b[0:8], uint64(ev.Sec))
	binary.LittleEndian.PutUint64(b[8:16], uint64(ev.Usec))
	binary.LittleEndian.PutUint16(b[16:18], ev.Type)
	binary.LittleEndian.PutUint16(b[18:20], ev.Code)
	binary.LittleEndian.PutUint32(b[20:24], uint32(ev.Value))
	return b
}

func TestFillAndPop(t *testing.T) {
	is := is.New(t)

	want := []InputEvent{
		{Sec: 10, Usec: 500, Type: EvRel, Code: RelRX, Value: -42},
		{Sec: 10, Usec: 501, Type: EvRel, Code: RelRY, Value: 7},
		{Sec: 10, Usec: 502, Type: EvSyn},
	}
	var stream bytes.Buffer
	for _, ev := range want {
		stream.Write(encodeEvent(ev))
	}

	r := NewReader(32)
	n, err := r.Fill(&stream)
	is.NoErr(err)
	is.Equal(n, 3)
	is.Equal(r.Pending(), 3)

	for _, w := range want {
		ev, ok := r.Pop()
		is.True(ok)
		is.Equal(ev, w)
	}
	_, ok := r.Pop()
	is.True(!ok)
}

func TestTimeNanos(t *testing.T) {
	is := is.New(t)
	ev := InputEvent{Sec: 3, Usec: 250}
	is.Equal(ev.TimeNanos(), int64(3_000_250_000))
}

func TestPartialEventCarriesOver(t *testing.T) {
	is := is.New(t)

	full := encodeEvent(InputEvent{Sec: 1, Type: EvRel, Code: RelRZ, Value: 9})

	r := NewReader(8)

	// First fill delivers only part of the event.
	n, err := r.Fill(bytes.NewReader(full[:10]))
	is.NoErr(err)
	is.Equal(n, 0)

	// Second fill completes it.
	n, err = r.Fill(bytes.NewReader(full[10:]))
	is.NoErr(err)
	is.Equal(n, 1)

	ev, ok := r.Pop()
	is.True(ok)
	is.Equal(ev.Code, RelRZ)
	is.Equal(ev.Value, int32(9))
}

func TestWorstCaseCarryover(t *testing.T) {
	is := is.New(t)

	// All but the last byte of an event left over, then a full batch on top.
	full := encodeEvent(InputEvent{Sec: 2, Type: EvRel, Code: RelRX, Value: 5})

	r := NewReader(8)
	n, err := r.Fill(bytes.NewReader(full[:eventSize-1]))
	is.NoErr(err)
	is.Equal(n, 0)

	var stream bytes.Buffer
	stream.Write(full[eventSize-1:])
	for i := 0; i < 7; i++ {
		stream.Write(encodeEvent(InputEvent{Type: EvSyn}))
	}

	n, err = r.Fill(&stream)
	is.NoErr(err)
	is.Equal(n, 8)

	ev, ok := r.Pop()
	is.True(ok)
	is.Equal(ev.Value, int32(5))
}

func TestEndOfDataIsNotAnError(t *testing.T) {
	is := is.New(t)

	r := NewReader(8)
	n, err := r.Fill(bytes.NewReader(nil)) // immediate EOF
	is.NoErr(err)
	is.Equal(n, 0)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReadFailurePropagates(t *testing.T) {
	is := is.New(t)

	r := NewReader(8)
	_, err := r.Fill(failingReader{err: errors.New("bus fault")})
	is.True(err != nil)
	is.True(!errors.Is(err, io.EOF))
}

func TestFullRingReportsZero(t *testing.T) {
	is := is.New(t)

	r := NewReader(1)
	stream := bytes.NewReader(append(
		encodeEvent(InputEvent{Type: EvRel, Code: RelRX, Value: 1}),
		encodeEvent(InputEvent{Type: EvSyn})...))

	n, err := r.Fill(stream)
	is.NoErr(err)
	is.Equal(n, 1)

	// No space left; nothing is read or lost.
	n, err = r.Fill(stream)
	is.NoErr(err)
	is.Equal(n, 0)

	_, ok := r.Pop()
	is.True(ok)
	n, err = r.Fill(stream)
	is.NoErr(err)
	is.Equal(n, 1)
}
