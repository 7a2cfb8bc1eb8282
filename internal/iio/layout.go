// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package iio

import "sort"

// ScanLayout computes the byte offset of every scan-eligible channel
// within one buffer sample, plus the per-sample stride. Channels are laid
// out in index order with each field aligned to its own storage size, the
// rule the kernel uses when packing scan buffers. Offsets are keyed by
// channel index.
func ScanLayout(chans []Channel) (offsets map[int]int, stride int) {
	var scan []Channel
	for _, ch := range chans {
		if ch.Index() >= 0 && ch.IsScanElement() && !ch.IsOutput() {
			scan = append(scan, ch)
		}
	}
	sort.Slice(scan, func(i, j int) bool { return scan[i].Index() < scan[j].Index() })

	offsets = make(map[int]int, len(scan))
	off := 0
	for _, ch := range scan {
		size := ch.Format().StorageBytes()
		if size == 0 {
			continue
		}
		if rem := off % size; rem != 0 {
			off += size - rem
		}
		offsets[ch.Index()] = off
		off += size
	}
	return offsets, off
}
