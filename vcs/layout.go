// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

// strides of the packet schedule within a link block.
const (
	SampleStride  = PacketSize
	GroupStride   = NumSamples * SampleStride
	ChannelStride = NumGroups * GroupStride
	SubBandStride = NumTiles
)

// Offset returns the offset, within a link block, of the 64 tile bytes
// for the provided time sample, physical channel, sub-group and sub-band.
func Offset(sample, channel, group, subband int) int {
	return sample*SampleStride +
		channel*ChannelStride +
		group*GroupStride +
		subband*SubBandStride +
		HeaderSize
}

// PhysChannel returns the physical channel position holding the data
// of the coarse channel labelled ch.
// Positions at or above the swap index are mirrored, so the upper half of
// the band is read from its reflected location while labels are kept.
func PhysChannel(ch, swap int) int {
	if ch < swap {
		return ch
	}
	return NumChannels - 1 - ch + swap
}

// TilePos returns the position within a 64-byte tile group of the byte
// holding tile t.
//
// The boards emit tiles as 0,16,32,48,1,17,33,49,2,18,...,15,31,47,63
// while flags are kept in tile order.
func TilePos(t int) int {
	return ((t & 0x30) >> 4) | ((t & 0x0f) << 2)
}
