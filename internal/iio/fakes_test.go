package iio

import "fmt"

// Synthetic bus pieces shared by the adapter and discovery tests.

type fakeChannel struct {
	id      string
	index   int
	output  bool
	scan    bool
	format  Format
	enabled bool
}

func (c *fakeChannel) ID() string          { return c.id }
func (c *fakeChannel) Index() int          { return c.index }
func (c *fakeChannel) IsOutput() bool      { return c.output }
func (c *fakeChannel) IsScanElement() bool { return c.scan }
func (c *fakeChannel) Format() Format      { return c.format }

func (c *fakeChannel) SetEnabled(enabled bool) error {
	c.enabled = enabled
	return nil
}

type fakeDevice struct {
	id      string
	name    string
	trigger bool
	chans   []*fakeChannel

	attrs    map[string]string
	written  map[string]string
	writeErr map[string]error

	buf       *fakeBuffer
	createErr error
	creates   int
}

func (d *fakeDevice) ID() string      { return d.id }
func (d *fakeDevice) Name() string    { return d.name }
func (d *fakeDevice) IsTrigger() bool { return d.trigger }

func (d *fakeDevice) Channels() []Channel {
	out := make([]Channel, len(d.chans))
	for i, c := range d.chans {
		out[i] = c
	}
	return out
}

func (d *fakeDevice) HasAttr(name string) bool {
	_, ok := d.attrs[name]
	return ok
}

func (d *fakeDevice) ReadAttr(name string) (string, error) {
	v, ok := d.attrs[name]
	if !ok {
		return "", fmt.Errorf("no attr %s", name)
	}
	return v, nil
}

func (d *fakeDevice) WriteAttr(name, value string) error {
	if err := d.writeErr[name]; err != nil {
		return err
	}
	if d.written == nil {
		d.written = map[string]string{}
	}
	d.written[name] = value
	return nil
}

func (d *fakeDevice) CreateBuffer(samples int) (Buffer, error) {
	d.creates++
	if d.createErr != nil {
		return nil, d.createErr
	}
	if d.buf == nil {
		d.buf = &fakeBuffer{pollFd: 42}
	}
	d.buf.destroyed = false
	return d.buf, nil
}

type fakeBuffer struct {
	frames    [][]byte // successive refill payloads
	refills   int
	refillErr error
	data      []byte
	pollFd    int
	destroyed bool
}

func (b *fakeBuffer) Refill() (int, error) {
	b.refills++
	if b.refillErr != nil {
		return 0, b.refillErr
	}
	if len(b.frames) == 0 {
		b.data = nil
		return 0, nil
	}
	b.data = b.frames[0]
	b.frames = b.frames[1:]
	return len(b.data), nil
}

func (b *fakeBuffer) Data() []byte { return b.data }
func (b *fakeBuffer) PollFd() int  { return b.pollFd }

func (b *fakeBuffer) Destroy() error {
	b.destroyed = true
	return nil
}
