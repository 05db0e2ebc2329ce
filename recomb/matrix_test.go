// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"bytes"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/go-lpc/recombine/internal/mmap"
	"github.com/go-lpc/recombine/vcs"
)

// newLink returns nblocks of synthetic data for the (board, lane) link.
func newLink(board, lane uint8, nblocks int, seed int) []byte {
	raw := make([]byte, nblocks*vcs.BlockSize)
	for i := range raw {
		raw[i] = byte(i*7 + seed)
	}
	for blk := 0; blk < nblocks; blk++ {
		vcs.EncodeHeader(raw[blk*vcs.BlockSize:], board, lane)
	}
	return raw
}

func discard() Option {
	return WithLogger(log.New(io.Discard, "recomb: ", 0))
}

func TestInitialize(t *testing.T) {
	var (
		l1 = newLink(1, 2, 1, 1)
		l2 = newLink(3, 7, 1, 2)
	)

	var flags vcs.TileFlags
	flags[1][0] = true
	flags[1][10] = true
	flags[1][63] = true
	flags[2][5] = true

	inputs := []Input{
		{Name: "vcs01", R: bytes.NewReader(l1)},
		{Name: "vcs02"},
		{Name: "vcs03", R: bytes.NewReader(l2)},
	}

	var arena mmap.Arena
	defer arena.Release()

	m, err := Initialize(inputs, &flags, &arena)
	if err != nil {
		t.Fatalf("could not initialize matrix: %+v", err)
	}

	if got, want := m.Links(), 2; got != want {
		t.Fatalf("invalid number of links: got=%d, want=%d", got, want)
	}

	for board := 0; board < vcs.NumBoards; board++ {
		for lane := 0; lane < vcs.NumLanes; lane++ {
			var (
				pad     = m.Padded(board, lane)
				contrib = m.Contributing(board, lane)
				name    = m.Name(board, lane)
			)
			switch {
			case board == 1 && lane == 2:
				if pad || contrib != 61 || name != "vcs01" {
					t.Fatalf("invalid slot (%d,%d): pad=%v, contrib=%d, name=%q", board, lane, pad, contrib, name)
				}
				if !bytes.Equal(m.Buffer(board, lane), l1) {
					t.Fatalf("invalid block for slot (%d,%d)", board, lane)
				}
			case board == 3 && lane == 7:
				if pad || contrib != 64 || name != "vcs03" {
					t.Fatalf("invalid slot (%d,%d): pad=%v, contrib=%d, name=%q", board, lane, pad, contrib, name)
				}
				if !bytes.Equal(m.Buffer(board, lane), l2) {
					t.Fatalf("invalid block for slot (%d,%d)", board, lane)
				}
			default:
				if !pad || contrib != 0 || name != "" {
					t.Fatalf("invalid slot (%d,%d): pad=%v, contrib=%d, name=%q", board, lane, pad, contrib, name)
				}
				buf := m.Buffer(board, lane)
				if len(buf) != vcs.BlockSize {
					t.Fatalf("invalid padded block size: got=%d, want=%d", len(buf), vcs.BlockSize)
				}
				if i := bytes.IndexFunc(buf, func(r rune) bool { return r != 0 }); i >= 0 {
					t.Fatalf("padded block (%d,%d) not zeroed at %d", board, lane, i)
				}
			}
		}
	}

	for lane, want := range []uint32{0, 0, 61, 0, 0, 0, 0, 64} {
		if got := m.LaneContributing(lane); got != want {
			t.Fatalf("invalid contributing tiles for lane %d: got=%d, want=%d", lane, got, want)
		}
	}

	if got, want := arena.Size(), 3*vcs.BlockSize; got != want {
		t.Fatalf("invalid arena size: got=%d, want=%d", got, want)
	}
}

func TestInitializeErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		inputs func() []Input
		want   error
	}{
		{
			name: "duplicate-slot",
			inputs: func() []Input {
				return []Input{
					{Name: "a", R: bytes.NewReader(newLink(2, 4, 1, 1))},
					{Name: "b", R: bytes.NewReader(newLink(2, 4, 1, 2))},
				}
			},
			want: vcs.ErrConfig,
		},
		{
			name: "short-read",
			inputs: func() []Input {
				return []Input{
					{Name: "a", R: bytes.NewReader(newLink(0, 0, 1, 1)[:vcs.BlockSize-1])},
				}
			},
			want: ErrIO,
		},
		{
			name: "too-many-links",
			inputs: func() []Input {
				return make([]Input, vcs.MaxInputs+1)
			},
			want: vcs.ErrConfig,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Initialize(tc.inputs(), nil, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%+v, want=%v", err, tc.want)
			}
		})
	}
}

func TestInitializeAllPadded(t *testing.T) {
	m, err := Initialize(make([]Input, vcs.MaxInputs), nil, nil)
	if err != nil {
		t.Fatalf("could not initialize matrix: %+v", err)
	}
	if got := m.Links(); got != 0 {
		t.Fatalf("invalid number of links: got=%d, want=0", got)
	}
	for lane := 0; lane < vcs.NumLanes; lane++ {
		if got := m.LaneContributing(lane); got != 0 {
			t.Fatalf("invalid contributing tiles for lane %d: got=%d", lane, got)
		}
	}

	err = m.Refresh()
	if err != nil {
		t.Fatalf("could not refresh padded matrix: %+v", err)
	}
}

func TestRefresh(t *testing.T) {
	var (
		l1 = newLink(0, 1, 2, 1)
		l2 = newLink(2, 5, 2, 5)
	)

	inputs := []Input{
		{Name: "l1", R: bytes.NewReader(l1)},
		{Name: "l2", R: bytes.NewReader(l2)},
	}

	m, err := Initialize(inputs, nil, nil)
	if err != nil {
		t.Fatalf("could not initialize matrix: %+v", err)
	}

	err = m.Refresh()
	if err != nil {
		t.Fatalf("could not refresh matrix: %+v", err)
	}

	if !bytes.Equal(m.Buffer(0, 1), l1[vcs.BlockSize:]) {
		t.Fatalf("invalid second block for slot (0,1)")
	}
	if !bytes.Equal(m.Buffer(2, 5), l2[vcs.BlockSize:]) {
		t.Fatalf("invalid second block for slot (2,5)")
	}

	err = m.Refresh()
	if !errors.Is(err, ErrIO) {
		t.Fatalf("invalid error: got=%+v, want=%v", err, ErrIO)
	}
}
