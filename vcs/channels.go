// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"fmt"
	"sort"
)

// SwapThreshold is the first coarse channel number whose data is
// physically reflected in the links.
const SwapThreshold = 129

// ValidateChannels checks freqs holds exactly NumChannels distinct
// coarse channel numbers.
func ValidateChannels(freqs []uint32) error {
	if len(freqs) != NumChannels {
		return fmt.Errorf(
			"%w: invalid number of coarse channels (got=%d, want=%d)",
			ErrConfig, len(freqs), NumChannels,
		)
	}

	seen := make(map[uint32]int, len(freqs))
	for i, f := range freqs {
		if j, dup := seen[f]; dup {
			return fmt.Errorf(
				"%w: duplicate coarse channel %d (positions %d and %d)",
				ErrConfig, f, j, i,
			)
		}
		seen[f] = i
	}
	return nil
}

// Order sorts a copy of the coarse channels and returns the swap index,
// the first sorted position whose channel is at or above SwapThreshold.
// The swap index is NumChannels when no channel needs to be reflected.
//
// The sorted channels label the output files. Addressing keeps the
// unsorted label order and applies the swap index (see PhysChannel).
func Order(freqs []uint32) (swap int, sorted []uint32) {
	sorted = make([]uint32, len(freqs))
	copy(sorted, freqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	swap = NumChannels
	for i, f := range sorted {
		if f >= SwapThreshold {
			swap = i
			break
		}
	}
	return swap, sorted
}
