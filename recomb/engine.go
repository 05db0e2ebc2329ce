// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"context"
	"fmt"
	"io"

	"github.com/go-lpc/recombine/internal/mmap"
	"github.com/go-lpc/recombine/internal/xio"
	"github.com/go-lpc/recombine/vcs"
)

// Outputs holds the sinks of a recombination.
// Channels are indexed by label, in the sorted coarse channel order.
type Outputs struct {
	Channels [vcs.NumChannels]io.Writer
	ICS      io.Writer
}

func (outs *Outputs) hasChannels() bool {
	for _, w := range outs.Channels {
		if w != nil {
			return true
		}
	}
	return false
}

type engine struct {
	cfg  config
	outs Outputs
	swap int

	tiles [vcs.NumBoards][]int // unflagged tile positions, per board
	chans [vcs.NumChannels][]byte
	curs  [vcs.NumChannels]int
	ics   []byte
	icur  int

	stats Stats
}

// Run recombines one second of data from the provided links.
//
// swap is the swap index of the coarse channels (see vcs.Order).
// Channel outputs are written after each block, the ICS output once all
// blocks have been processed.
// Cancellation of ctx is checked between blocks.
//
// The caller owns the inputs and outputs and closes them once Run
// returns.
func Run(ctx context.Context, inputs []Input, outs Outputs, swap int, flags *vcs.TileFlags, opts ...Option) error {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if swap < 0 || swap > vcs.NumChannels {
		return fmt.Errorf("%w: invalid swap index %d", vcs.ErrConfig, swap)
	}
	if flags == nil {
		flags = new(vcs.TileFlags)
	}
	err := flags.Validate()
	if err != nil {
		return err
	}

	cfg.chans = cfg.chans && outs.hasChannels()
	cfg.ics = cfg.ics && outs.ICS != nil
	if cfg.chans {
		for i, w := range outs.Channels {
			if w == nil {
				return fmt.Errorf("%w: missing output for coarse channel %d", vcs.ErrConfig, i)
			}
		}
	}

	eng := engine{
		cfg:  cfg,
		outs: outs,
		swap: swap,
	}
	for board := range eng.tiles {
		eng.tiles[board] = flags.Tiles(board)
	}

	var arena mmap.Arena
	defer arena.Release()

	err = eng.alloc(&arena)
	if err != nil {
		return err
	}

	err = eng.run(ctx, inputs, flags, &arena)
	if cfg.stats != nil {
		*cfg.stats = eng.stats
	}
	if err != nil {
		return err
	}

	cfg.msg.Printf(
		"recombined %d blocks from %d links (padded=%d, dead=%d, written=%d bytes)",
		eng.stats.Blocks, eng.stats.Links, eng.stats.Padded,
		eng.stats.DeadBlocks, eng.stats.BytesWritten,
	)
	return nil
}

func (eng *engine) alloc(arena *mmap.Arena) error {
	var err error
	if eng.cfg.chans {
		for i := range eng.chans {
			eng.chans[i], err = arena.Alloc(vcs.ChannelBlockSize)
			if err != nil {
				return fmt.Errorf("recomb: could not allocate buffer for coarse channel %d: %w", i, err)
			}
		}
	}
	if eng.cfg.ics {
		eng.ics, err = arena.Alloc(vcs.ICSBlockSize * eng.cfg.blocks)
		if err != nil {
			return fmt.Errorf("recomb: could not allocate ICS buffer: %w", err)
		}
	}
	return nil
}

func (eng *engine) run(ctx context.Context, inputs []Input, flags *vcs.TileFlags, arena *mmap.Arena) error {
	var (
		m   *Matrix
		err error
	)
	for blk := 0; blk < eng.cfg.blocks; blk++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("recomb: recombination interrupted before block %d: %w", blk, ctx.Err())
		default:
		}

		switch blk {
		case 0:
			m, err = Initialize(inputs, flags, arena)
			if err != nil {
				return fmt.Errorf("recomb: could not initialize link matrix: %w", err)
			}
			eng.stats.Links = m.Links()
			eng.stats.Padded = vcs.MaxInputs - eng.stats.Links
			for board := 0; board < vcs.NumBoards; board++ {
				for lane := 0; lane < vcs.NumLanes; lane++ {
					if m.Padded(board, lane) {
						eng.cfg.msg.Printf("board=%d lane=%d: no link, padding with zeros", board, lane)
					}
				}
			}
		default:
			err = m.Refresh()
			if err != nil {
				return fmt.Errorf("recomb: could not read block %d: %w", blk, err)
			}
		}
		eng.stats.BytesRead += int64(eng.stats.Links) * vcs.BlockSize

		eng.process(m)
		eng.stats.Blocks++

		err = eng.flushChannels(blk)
		if err != nil {
			return err
		}
	}

	return eng.flushICS()
}

// process gathers the tile groups of one block.
func (eng *engine) process(m *Matrix) {
	var (
		chans = eng.cfg.chans
		ics   = eng.cfg.ics
	)
	for i := range eng.curs {
		eng.curs[i] = 0
	}

	for sample := 0; sample < vcs.NumSamples; sample++ {
		for ch := 0; ch < vcs.NumChannels; ch++ {
			phys := vcs.PhysChannel(ch, eng.swap)
			for lane := 0; lane < vcs.NumLanes; lane++ {
				contrib := m.LaneContributing(lane)
				for group := 0; group < vcs.NumGroups; group++ {
					for sub := 0; sub < vcs.NumSubBands; sub++ {
						var (
							off = vcs.Offset(sample, phys, group, sub)
							sum uint32
						)
						for board := 0; board < vcs.NumBoards; board++ {
							tiles := m.Buffer(board, lane)[off : off+vcs.NumTiles]
							if chans {
								copy(eng.chans[ch][eng.curs[ch]:], tiles)
								eng.curs[ch] += vcs.NumTiles
							}
							if !ics {
								continue
							}
							if m.Padded(board, lane) {
								eng.stats.DeadBlocks++
								continue
							}
							for _, pos := range eng.tiles[board] {
								sum += uint32(vcs.PowerTable[tiles[pos]])
							}
						}
						if ics {
							eng.ics[eng.icur] = vcs.NormalizeICS(sum, contrib)
							eng.icur++
						}
					}
				}
			}
		}
	}
}

func (eng *engine) flushChannels(blk int) error {
	if !eng.cfg.chans {
		return nil
	}
	for ch, w := range eng.outs.Channels {
		n, err := xio.WriteFull(w, eng.chans[ch][:eng.curs[ch]])
		eng.stats.BytesWritten += int64(n)
		if err != nil {
			return fmt.Errorf(
				"%w: could not write block %d of coarse channel %d: %w",
				ErrIO, blk, ch, err,
			)
		}
	}
	return nil
}

func (eng *engine) flushICS() error {
	if !eng.cfg.ics {
		return nil
	}
	n, err := xio.WriteFull(eng.outs.ICS, eng.ics[:eng.icur])
	eng.stats.BytesWritten += int64(n)
	if err != nil {
		return fmt.Errorf("%w: could not write ICS: %w", ErrIO, err)
	}
	return nil
}
