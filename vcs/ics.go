// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

// ICSScale is the gain applied to the power sum before normalization.
const ICSScale = 5

// PowerTable maps a sample byte (4-bit real, 4-bit imaginary) to its
// quantized power.
var PowerTable = [256]uint16{
	0, 1, 4, 9, 16, 25, 36, 49, 49, 49, 36, 25, 16, 9, 4, 1, 1, 2, 5, 10, 17, 26, 37, 50, 50, 50, 37, 26, 17, 10, 5, 2,
	4, 5, 8, 13, 20, 29, 40, 53, 53, 53, 40, 29, 20, 13, 8, 5, 9, 10, 13, 18, 25, 34, 45, 58, 58, 58, 45, 34, 25, 18, 13, 10,
	16, 17, 20, 25, 32, 41, 52, 65, 65, 65, 52, 41, 32, 25, 20, 17, 25, 26, 29, 34, 41, 50, 61, 74, 74, 74, 61, 50, 41, 34, 29, 26,
	36, 37, 40, 45, 52, 61, 72, 85, 85, 85, 72, 61, 52, 45, 40, 37, 49, 50, 53, 58, 65, 74, 85, 98, 98, 98, 85, 74, 65, 58, 53, 50,
	49, 50, 53, 58, 65, 74, 85, 98, 98, 98, 85, 74, 65, 58, 53, 50, 49, 50, 53, 58, 65, 74, 85, 98, 98, 98, 85, 74, 65, 58, 53, 50,
	36, 37, 40, 45, 52, 61, 72, 85, 85, 85, 72, 61, 52, 45, 40, 37, 25, 26, 29, 34, 41, 50, 61, 74, 74, 74, 61, 50, 41, 34, 29, 26,
	16, 17, 20, 25, 32, 41, 52, 65, 65, 65, 52, 41, 32, 25, 20, 17, 9, 10, 13, 18, 25, 34, 45, 58, 58, 58, 45, 34, 25, 18, 13, 10,
	4, 5, 8, 13, 20, 29, 40, 53, 53, 53, 40, 29, 20, 13, 8, 5, 1, 2, 5, 10, 17, 26, 37, 50, 50, 50, 37, 26, 17, 10, 5, 2,
}

// NormalizeICS converts the power sum accumulated over the contributing
// tiles of a lane into an ICS byte.
// The sum is scaled, divided by the number of contributing tiles and
// clipped to 255, in that order.
// A lane without any contributing tile yields 0.
func NormalizeICS(sum, contrib uint32) uint8 {
	if contrib == 0 {
		return 0
	}
	v := (uint64(sum) * ICSScale) / uint64(contrib)
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}
