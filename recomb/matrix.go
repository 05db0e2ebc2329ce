// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/go-lpc/recombine/internal/mmap"
	"github.com/go-lpc/recombine/internal/xio"
	"github.com/go-lpc/recombine/vcs"
)

type slot struct {
	name    string
	r       io.Reader
	buf     []byte
	pad     bool
	contrib uint32 // contributing tiles
}

// Matrix routes the blocks of the physical links to their
// (board, lane) position.
type Matrix struct {
	slots [vcs.NumBoards][vcs.NumLanes]slot
	lanes [vcs.NumLanes]uint32 // contributing tiles per lane
}

// Initialize reads the first block of every present link, decodes its
// identity header and places it in the matrix.
// Slots claimed by no link are padded with zeros and contribute no tile.
//
// Block buffers are allocated from arena, or from the Go heap when
// arena is nil. A nil flags table flags no tile.
func Initialize(inputs []Input, flags *vcs.TileFlags, arena *mmap.Arena) (*Matrix, error) {
	if len(inputs) > vcs.MaxInputs {
		return nil, fmt.Errorf(
			"%w: too many links (got=%d, max=%d)",
			vcs.ErrConfig, len(inputs), vcs.MaxInputs,
		)
	}

	if flags == nil {
		flags = new(vcs.TileFlags)
	}

	alloc := func(n int) ([]byte, error) {
		if arena == nil {
			return make([]byte, n), nil
		}
		return arena.Alloc(n)
	}

	bufs := make([][]byte, len(inputs))
	for i, in := range inputs {
		if in.Absent() {
			continue
		}
		buf, err := alloc(vcs.BlockSize)
		if err != nil {
			return nil, fmt.Errorf("recomb: could not allocate block buffer for %q: %w", in.Name, err)
		}
		bufs[i] = buf
	}

	var grp errgroup.Group
	for i := range inputs {
		if inputs[i].Absent() {
			continue
		}
		i := i
		grp.Go(func() error {
			return readBlock(inputs[i].Name, inputs[i].R, bufs[i])
		})
	}
	err := grp.Wait()
	if err != nil {
		return nil, err
	}

	var m Matrix
	for i, in := range inputs {
		if in.Absent() {
			continue
		}
		hdr, err := vcs.DecodeHeader(bufs[i])
		if err != nil {
			return nil, fmt.Errorf("recomb: could not decode header of %q: %w", in.Name, err)
		}
		slot := &m.slots[hdr.Board][hdr.Lane]
		if slot.buf != nil {
			return nil, fmt.Errorf(
				"%w: links %q and %q both claim board=%d lane=%d",
				vcs.ErrConfig, slot.name, in.Name, hdr.Board, hdr.Lane,
			)
		}
		slot.name = in.Name
		slot.r = in.R
		slot.buf = bufs[i]
	}

	var zero []byte
	for board := range m.slots {
		flagged := uint32(flags.Flagged(board))
		for lane := range m.slots[board] {
			slot := &m.slots[board][lane]
			if slot.buf != nil {
				slot.contrib = vcs.NumTiles - flagged
				m.lanes[lane] += slot.contrib
				continue
			}
			if zero == nil {
				zero, err = alloc(vcs.BlockSize)
				if err != nil {
					return nil, fmt.Errorf("recomb: could not allocate padding buffer: %w", err)
				}
			}
			slot.buf = zero
			slot.pad = true
		}
	}

	return &m, nil
}

// Refresh reads the next block of every non-padded slot into its buffer.
func (m *Matrix) Refresh() error {
	var grp errgroup.Group
	for board := range m.slots {
		for lane := range m.slots[board] {
			slot := &m.slots[board][lane]
			if slot.pad {
				continue
			}
			grp.Go(func() error {
				return readBlock(slot.name, slot.r, slot.buf)
			})
		}
	}
	return grp.Wait()
}

func readBlock(name string, r io.Reader, buf []byte) error {
	_, err := xio.ReadFull(r, buf)
	if err != nil {
		return fmt.Errorf("%w: could not read block from %q: %w", ErrIO, name, err)
	}
	return nil
}

// Buffer returns the current block of the (board, lane) slot.
func (m *Matrix) Buffer(board, lane int) []byte {
	return m.slots[board][lane].buf
}

// Padded returns whether the (board, lane) slot has no link behind it.
func (m *Matrix) Padded(board, lane int) bool {
	return m.slots[board][lane].pad
}

// Contributing returns the number of tiles of the (board, lane) slot
// entering the incoherent sum.
func (m *Matrix) Contributing(board, lane int) uint32 {
	return m.slots[board][lane].contrib
}

// LaneContributing returns the number of tiles of a lane, over all
// boards, entering the incoherent sum.
func (m *Matrix) LaneContributing(lane int) uint32 {
	return m.lanes[lane]
}

// Name returns the name of the link routed to the (board, lane) slot.
func (m *Matrix) Name(board, lane int) string {
	return m.slots[board][lane].name
}

// Links returns the number of links routed into the matrix.
func (m *Matrix) Links() int {
	n := 0
	for board := range m.slots {
		for lane := range m.slots[board] {
			if !m.slots[board][lane].pad {
				n++
			}
		}
	}
	return n
}
