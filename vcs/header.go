// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// Header is the identity header found at the start of each packet.
//
// Bytes 2-5 hold two little-endian 16-bit words.
// The lane (mgt_id) lives in bits 4-6 of the first one,
// the board (pfb_id) in bits 14-15 of the second one.
type Header struct {
	W1 uint16
	W2 uint16
	W3 uint16

	Board uint8 // pfb_id
	Lane  uint8 // mgt_id
}

// DecodeHeader decodes the identity header at the start of p.
func DecodeHeader(p []byte) (Header, error) {
	var hdr Header
	if len(p) < HeaderSize {
		return hdr, xerrors.Errorf(
			"vcs: could not decode header (len=%d, want=%d): %w",
			len(p), HeaderSize, io.ErrUnexpectedEOF,
		)
	}

	hdr.W1 = binary.LittleEndian.Uint16(p[0:2])
	hdr.W2 = binary.LittleEndian.Uint16(p[2:4])
	hdr.W3 = binary.LittleEndian.Uint16(p[4:6])
	hdr.Lane = uint8(hdr.W2>>4) & 0x7
	hdr.Board = uint8(hdr.W3>>14) & 0x3

	err := hdr.Validate()
	if err != nil {
		return hdr, err
	}
	return hdr, nil
}

// Validate checks the board and lane ids lie within the schedule.
func (hdr Header) Validate() error {
	if int(hdr.Board) >= NumBoards {
		return fmt.Errorf("%w: board id %d out of range [0,%d]", ErrConfig, hdr.Board, NumBoards-1)
	}
	if int(hdr.Lane) >= NumLanes {
		return fmt.Errorf("%w: lane id %d out of range [0,%d]", ErrConfig, hdr.Lane, NumLanes-1)
	}
	return nil
}

// EncodeHeader writes the identity words of a packet claiming
// the provided board and lane into p.
// The remaining bits of the words are left as found in p.
func EncodeHeader(p []byte, board, lane uint8) {
	w2 := binary.LittleEndian.Uint16(p[2:4])
	w3 := binary.LittleEndian.Uint16(p[4:6])
	w2 = w2&^(0x7<<4) | uint16(lane&0x7)<<4
	w3 = w3&^(0x3<<14) | uint16(board&0x3)<<14
	binary.LittleEndian.PutUint16(p[2:4], w2)
	binary.LittleEndian.PutUint16(p[4:6], w3)
}
