package iio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/relabs-tech/sensor_hub/internal/hal"
)

// writeTree lays out a synthetic iio sysfs hierarchy under a temp dir and
// returns (root, devDir). The device has an int16 angular-velocity scan
// channel, an int64 timestamp, one output lane and the sampling-frequency
// attribute.
func writeTree(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "devices")
	devDir := filepath.Join(base, "dev")

	dev := filepath.Join(root, "iio:device0")
	scan := filepath.Join(dev, "scan_elements")
	for _, dir := range []string{scan, filepath.Join(dev, "buffer"), filepath.Join(root, "trigger0"), devDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	files := map[string]string{
		"name":                  "gb_sensor\n",
		"greybus_type":          "4\n",
		"in_scale":              "0.5\n",
		"in_offset":             "1\n",
		"in_sampling_frequency": "100\n",
		"out_voltage0_raw":      "0\n",
		"buffer/length":         "0\n",
		"buffer/enable":         "0\n",

		"scan_elements/in_anglvel_x_en":    "0\n",
		"scan_elements/in_anglvel_x_index": "0\n",
		"scan_elements/in_anglvel_x_type":  "le:s16/16>>0\n",
		"scan_elements/in_timestamp_en":    "0\n",
		"scan_elements/in_timestamp_index": "1\n",
		"scan_elements/in_timestamp_type":  "le:s64/64>>0\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dev, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "trigger0", "name"), []byte("sysfstrig0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Two samples of raw buffer data behind the "character device":
	// int16 at offset 0, int64 timestamp aligned at 8, 16-byte stride.
	raw := make([]byte, 32)
	x0 := int16(-100)
	binary.LittleEndian.PutUint16(raw[0:2], uint16(x0))
	binary.LittleEndian.PutUint64(raw[8:16], 1111)
	binary.LittleEndian.PutUint16(raw[16:18], 200)
	binary.LittleEndian.PutUint64(raw[24:32], 2222)
	if err := os.WriteFile(filepath.Join(devDir, "iio:device0"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	return root, devDir
}

func TestSysfsScan(t *testing.T) {
	is := is.New(t)

	root, devDir := writeTree(t)
	ctx, err := newContext(root, devDir)
	is.NoErr(err)

	devs := ctx.Devices()
	is.Equal(len(devs), 2)

	dev := devs[0]
	is.Equal(dev.ID(), "iio:device0")
	is.Equal(dev.Name(), "gb_sensor")
	is.True(!dev.IsTrigger())
	is.True(dev.HasAttr("greybus_type"))
	is.True(devs[1].IsTrigger())

	// 2 scan elements + 1 output raw lane + sampling_frequency.
	chans := dev.Channels()
	is.Equal(len(chans), 4)

	byID := map[string]Channel{}
	for _, ch := range chans {
		byID[ch.ID()] = ch
	}
	is.Equal(byID["anglvel_x"].Index(), 0)
	is.Equal(byID["anglvel_x"].Format(), Format{Signed: true, Bits: 16, Storage: 16})
	is.Equal(byID["timestamp"].Index(), 1)
	is.True(byID["voltage0"].IsOutput())
	is.Equal(byID["sampling_frequency"].Index(), -1)

	is.True(IsUsable(dev))
}

func TestSysfsMissingRoot(t *testing.T) {
	is := is.New(t)
	_, err := newContext(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	is.True(err != nil)
}

func TestSysfsSensorEndToEnd(t *testing.T) {
	is := is.New(t)

	root, devDir := writeTree(t)
	ctx, err := newContext(root, devDir)
	is.NoErr(err)

	r := NewRegistry(20)
	r.Update(ctx)
	is.Equal(len(r.Sensors()), 1)

	s := r.Sensors()[0]
	is.Equal(s.Descriptor().Handle, int32(20))
	is.Equal(s.Descriptor().Type, hal.TypeGyroscope)

	is.NoErr(s.SetEnable(20, true))

	dev := filepath.Join(root, "iio:device0")
	readFile := func(name string) string {
		b, err := os.ReadFile(filepath.Join(dev, name))
		is.NoErr(err)
		return string(b)
	}
	is.Equal(readFile("scan_elements/in_anglvel_x_en"), "1")
	is.Equal(readFile("buffer/enable"), "1")

	out := make([]hal.Event, 4)
	n, err := s.ReadEvents(out)
	is.NoErr(err)
	is.Equal(n, 2)
	is.Equal(out[0].Timestamp, int64(1111))
	is.Equal(out[0].Data[0], float32(-100*0.5+1))
	is.Equal(out[1].Timestamp, int64(2222))
	is.Equal(out[1].Data[0], float32(200*0.5+1))

	is.NoErr(s.Batch(20, 0, 2_000_000, 0))
	is.Equal(readFile("in_sampling_frequency"), "500.000000")

	is.NoErr(s.Flush(20))
	is.Equal(readFile("flush"), "1")

	is.NoErr(s.SetEnable(20, false))
	is.Equal(readFile("buffer/enable"), "0")
	is.Equal(readFile("scan_elements/in_anglvel_x_en"), "0")
}
