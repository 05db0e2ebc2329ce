// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Metadata describes the observation-level configuration consumed by
// the recombination: the coarse channels, in label order, and the
// per-tile exclusion flags.
type Metadata struct {
	ObsID    int64    `json:"obsid"`
	Channels []uint32 `json:"channels"`
	Flags    []uint8  `json:"flags"` // board-major, NumBoards*NumTiles values
}

// TileFlags returns the exclusion flags table of the observation.
func (meta Metadata) TileFlags() (TileFlags, error) {
	return FlagsFrom(meta.Flags)
}

// Validate checks the channels and flags are usable for a recombination.
func (meta Metadata) Validate() error {
	err := ValidateChannels(meta.Channels)
	if err != nil {
		return err
	}

	flags, err := meta.TileFlags()
	if err != nil {
		return err
	}

	return flags.Validate()
}

// LoadMetadata decodes and validates JSON metadata from r.
func LoadMetadata(r io.Reader) (Metadata, error) {
	var meta Metadata
	err := json.NewDecoder(r).Decode(&meta)
	if err != nil {
		return meta, fmt.Errorf("vcs: could not decode metadata: %w", err)
	}

	err = meta.Validate()
	if err != nil {
		return meta, fmt.Errorf("vcs: invalid metadata: %w", err)
	}
	return meta, nil
}

// ReadMetadata loads JSON metadata from the named file.
func ReadMetadata(fname string) (Metadata, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Metadata{}, fmt.Errorf("vcs: could not open metadata file: %w", err)
	}
	defer f.Close()

	return LoadMetadata(f)
}

// ParseChannels parses a comma separated list of coarse channel numbers,
// as stored in observation records.
func ParseChannels(s string) ([]uint32, error) {
	var (
		toks  = strings.Split(s, ",")
		chans = make([]uint32, 0, len(toks))
	)
	for _, tok := range toks {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: could not parse coarse channel %q: %v", ErrConfig, tok, err)
		}
		chans = append(chans, uint32(v))
	}
	return chans, nil
}
