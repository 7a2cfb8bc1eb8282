// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package iio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// newContext scans an iio sysfs tree. root is the bus directory
// (/sys/bus/iio/devices), devDir is where the buffer character devices
// live (/dev).
func newContext(root, devDir string) (*Context, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	ctx := &Context{root: root, devDir: devDir}
	for _, name := range names {
		isTrigger := strings.HasPrefix(name, "trigger")
		if !isTrigger && !strings.HasPrefix(name, "iio:device") {
			continue
		}
		d := &sysfsDevice{
			path:    filepath.Join(root, name),
			devDir:  devDir,
			id:      name,
			trigger: isTrigger,
		}
		if b, err := os.ReadFile(filepath.Join(d.path, "name")); err == nil {
			d.name = strings.TrimSpace(string(b))
		}
		if !isTrigger {
			if err := d.loadChannels(); err != nil {
				return nil, fmt.Errorf("device %s: %w", name, err)
			}
		}
		ctx.devices = append(ctx.devices, d)
	}
	return ctx, nil
}

type sysfsDevice struct {
	path    string
	devDir  string
	id      string
	name    string
	trigger bool
	chans   []Channel
}

func (d *sysfsDevice) ID() string          { return d.id }
func (d *sysfsDevice) Name() string        { return d.name }
func (d *sysfsDevice) IsTrigger() bool     { return d.trigger }
func (d *sysfsDevice) Channels() []Channel { return d.chans }

func (d *sysfsDevice) HasAttr(name string) bool {
	_, err := os.Stat(filepath.Join(d.path, name))
	return err == nil
}

func (d *sysfsDevice) ReadAttr(name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(d.path, name))
	if err != nil {
		return "", fmt.Errorf("read attr %s: %w", name, err)
	}
	return string(b), nil
}

func (d *sysfsDevice) WriteAttr(name, value string) error {
	if err := os.WriteFile(filepath.Join(d.path, name), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write attr %s: %w", name, err)
	}
	return nil
}

// loadChannels builds the channel list: scan elements from the
// scan_elements directory, then the non-scan input lanes visible only as
// *_raw attributes, then the sampling-frequency lane the kernel exposes as
// an input channel. Channel ids already seen as scan elements are not
// duplicated.
func (d *sysfsDevice) loadChannels() error {
	seen := map[string]bool{}

	scanDir := filepath.Join(d.path, "scan_elements")
	if entries, err := os.ReadDir(scanDir); err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), "_en") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			base := strings.TrimSuffix(name, "_en") // e.g. "in_anglvel_x"
			ch := &sysfsChannel{
				id:     strings.TrimPrefix(strings.TrimPrefix(base, "in_"), "out_"),
				output: strings.HasPrefix(base, "out_"),
				scan:   true,
				index:  -1,
				enPath: filepath.Join(scanDir, name),
			}

			if b, err := os.ReadFile(filepath.Join(scanDir, base+"_index")); err == nil {
				if v, err := strconv.Atoi(strings.TrimSpace(string(b))); err == nil {
					ch.index = v
				}
			}
			b, err := os.ReadFile(filepath.Join(scanDir, base+"_type"))
			if err != nil {
				return fmt.Errorf("channel %s: missing scan type: %w", ch.id, err)
			}
			ch.format, err = ParseFormat(string(b))
			if err != nil {
				return fmt.Errorf("channel %s: %w", ch.id, err)
			}

			d.chans = append(d.chans, ch)
			seen[ch.id] = true
		}
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return err
	}
	var raws []string
	for _, e := range entries {
		raws = append(raws, e.Name())
	}
	sort.Strings(raws)

	for _, name := range raws {
		if !strings.HasSuffix(name, "_raw") {
			continue
		}
		base := strings.TrimSuffix(name, "_raw")
		output := strings.HasPrefix(base, "out_")
		id := strings.TrimPrefix(strings.TrimPrefix(base, "in_"), "out_")
		if seen[id] {
			continue
		}
		d.chans = append(d.chans, &sysfsChannel{id: id, output: output, index: -1})
		seen[id] = true
	}

	if d.HasAttr("in_sampling_frequency") && !seen["sampling_frequency"] {
		d.chans = append(d.chans, &sysfsChannel{id: "sampling_frequency", index: -1})
	}
	return nil
}

// CreateBuffer sets the kernel buffer length, enables the buffer, and
// opens the character device non-blocking.
func (d *sysfsDevice) CreateBuffer(samples int) (Buffer, error) {
	if err := d.WriteAttr(filepath.Join("buffer", "length"), strconv.Itoa(samples)); err != nil {
		return nil, err
	}
	if err := d.WriteAttr(filepath.Join("buffer", "enable"), "1"); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(d.devDir, d.id), os.O_RDONLY, 0)
	if err != nil {
		d.WriteAttr(filepath.Join("buffer", "enable"), "0")
		return nil, fmt.Errorf("open buffer device: %w", err)
	}
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		f.Close()
		d.WriteAttr(filepath.Join("buffer", "enable"), "0")
		return nil, fmt.Errorf("set buffer non-blocking: %w", err)
	}

	_, stride := ScanLayout(d.chans)
	if stride == 0 {
		stride = 1
	}
	return &sysfsBuffer{dev: d, f: f, raw: make([]byte, samples*stride)}, nil
}

type sysfsChannel struct {
	id     string
	index  int
	output bool
	scan   bool
	format Format
	enPath string
}

func (c *sysfsChannel) ID() string          { return c.id }
func (c *sysfsChannel) Index() int          { return c.index }
func (c *sysfsChannel) IsOutput() bool      { return c.output }
func (c *sysfsChannel) IsScanElement() bool { return c.scan }
func (c *sysfsChannel) Format() Format      { return c.format }

func (c *sysfsChannel) SetEnabled(enabled bool) error {
	if c.enPath == "" {
		return nil
	}
	v := "0"
	if enabled {
		v = "1"
	}
	if err := os.WriteFile(c.enPath, []byte(v), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.enPath, err)
	}
	return nil
}

type sysfsBuffer struct {
	dev  *sysfsDevice
	f    *os.File
	raw  []byte
	data []byte
}

// Refill reads the next batch of raw samples. A would-block read means no
// data has arrived yet and is reported as zero bytes.
func (b *sysfsBuffer) Refill() (int, error) {
	n, err := b.f.Read(b.raw)
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, io.EOF) {
			b.data = b.raw[:0]
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", b.f.Name(), err)
	}
	b.data = b.raw[:n]
	return n, nil
}

func (b *sysfsBuffer) Data() []byte { return b.data }

func (b *sysfsBuffer) PollFd() int { return int(b.f.Fd()) }

// Destroy disables the kernel buffer and closes the character device.
func (b *sysfsBuffer) Destroy() error {
	werr := b.dev.WriteAttr(filepath.Join("buffer", "enable"), "0")
	cerr := b.f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
