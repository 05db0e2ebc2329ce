// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vcs describes the fixed packet schedule of the voltage capture
// system (VCS) receiver links.
//
// Within a link, packets cycle in the following order, listed from slowest
// to fastest:
//
//   - coarse channel [0-23]
//   - frequency sub-group: which 40 kHz wide packet of the contiguous
//     160 kHz the packet holds the 4×10 kHz samples for [0-3]
//   - time sample within the 50 ms block [0-499]
//
// Each packet carries a 6-byte identity header followed by 4 sub-bands of
// 64 tile bytes and 2 reserved bytes.
package vcs // import "github.com/go-lpc/recombine/vcs"

import "errors"

const (
	NumChannels     = 24  // coarse channels
	NumBoards       = 4   // receiver (PFB) boards
	NumLanes        = 8   // lanes per board
	NumGroups       = 4   // frequency sub-groups per coarse channel
	NumSubBands     = 4   // 10 kHz sub-bands per sub-group
	NumTiles        = 64  // tiles per board
	NumSamples      = 500 // time samples per block
	BlocksPerSecond = 20  // 50 ms blocks per second

	MaxInputs = NumBoards * NumLanes // physical links

	PacketSize      = 264
	PacketsPerBlock = 48000
	HeaderSize      = 6

	// BlockSize is the size of one 50 ms block of a physical link.
	BlockSize = PacketsPerBlock * PacketSize

	// ChannelBlockSize is the number of bytes one coarse channel
	// accumulates per block.
	ChannelBlockSize = NumSamples * NumLanes * NumGroups * NumSubBands * NumBoards * NumTiles

	// ICSBlockSize is the number of ICS bytes produced per block.
	ICSBlockSize = NumSamples * NumChannels * NumLanes * NumGroups * NumSubBands

	// ICSSize is the number of ICS bytes produced per second.
	ICSSize = ICSBlockSize * BlocksPerSecond

	// ChannelFileSize is the size of one coarse channel file for a second.
	ChannelFileSize = ChannelBlockSize * BlocksPerSecond
)

var (
	// ErrConfig reports an invalid or inconsistent configuration:
	// channel list, tile flags or link identity headers.
	ErrConfig = errors.New("vcs: invalid configuration")
)
