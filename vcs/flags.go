// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import "fmt"

// TileFlags holds the exclusion flags of each tile, per board.
// A set flag removes the tile from the incoherent sum.
type TileFlags [NumBoards][NumTiles]bool

// FlagsFrom builds a flag table from NumBoards*NumTiles values in
// board-major order, where any non-zero value flags the tile.
func FlagsFrom(vs []uint8) (TileFlags, error) {
	var flags TileFlags
	if len(vs) != NumBoards*NumTiles {
		return flags, fmt.Errorf(
			"%w: invalid number of tile flags (got=%d, want=%d)",
			ErrConfig, len(vs), NumBoards*NumTiles,
		)
	}
	for i, v := range vs {
		flags[i/NumTiles][i%NumTiles] = v != 0
	}
	return flags, nil
}

// Flagged returns the number of flagged tiles of a board.
func (flags *TileFlags) Flagged(board int) int {
	n := 0
	for _, v := range flags[board] {
		if v {
			n++
		}
	}
	return n
}

// Validate checks at least one tile is left in the incoherent sum.
func (flags *TileFlags) Validate() error {
	n := 0
	for board := range flags {
		n += flags.Flagged(board)
	}
	if n >= NumBoards*NumTiles {
		return fmt.Errorf("%w: all the tiles are flagged out", ErrConfig)
	}
	return nil
}

// Tiles returns the byte positions, within a 64-byte tile group, of the
// unflagged tiles of a board, in tile order.
func (flags *TileFlags) Tiles(board int) []int {
	pos := make([]int, 0, NumTiles)
	for t, v := range flags[board] {
		if v {
			continue
		}
		pos = append(pos, TilePos(t))
	}
	return pos
}
