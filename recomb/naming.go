// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-lpc/recombine/vcs"
)

// FileID identifies a VCS data product from its file name.
type FileID struct {
	ObsID   int64
	Second  int64
	Channel uint32 // coarse channel of a recombined channel file
	Link    string // link id of a raw file (vcsNN)
	Part    int    // part of a raw file
}

// ChannelFilename returns the name of the recombined file of a coarse
// channel, e.g. 1070978272_1070978400_ch164.dat.
func ChannelFilename(obsid, second int64, freq uint32) string {
	return fmt.Sprintf("%d_%d_ch%d.dat", obsid, second, freq)
}

// ICSFilename returns the name of the ICS file of a second,
// e.g. 1070978272_1070978400_ics.dat.
func ICSFilename(obsid, second int64) string {
	return fmt.Sprintf("%d_%d_ics.dat", obsid, second)
}

// OutputFilenames returns the names of the coarse channel files, in label
// order, for the sorted coarse channels.
func OutputFilenames(obsid, second int64, sorted []uint32) []string {
	names := make([]string, len(sorted))
	for i, freq := range sorted {
		names[i] = ChannelFilename(obsid, second, freq)
	}
	return names
}

func splitName(name, ext string) ([]string, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ext) {
		return nil, fmt.Errorf("recomb: invalid file name %q: missing %s extension", base, ext)
	}
	toks := strings.Split(strings.TrimSuffix(base, ext), "_")
	if len(toks) < 3 {
		return nil, fmt.Errorf("recomb: invalid file name %q", base)
	}
	return toks, nil
}

func parseInt(name, tok string) (int64, error) {
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("recomb: invalid file name %q: %w", filepath.Base(name), err)
	}
	return v, nil
}

func parseChannel(name, tok string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(tok, "ch"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("recomb: invalid coarse channel in %q: %w", filepath.Base(name), err)
	}
	return uint32(v), nil
}

// ParseChannelFilename parses the name of a recombined coarse channel file.
// Both the <obsid>_<second>_ch<N>.dat and the older
// <obsid>_c_ch<N>_<second>.dat forms are recognized.
func ParseChannelFilename(name string) (FileID, error) {
	var id FileID
	toks, err := splitName(name, ".dat")
	if err != nil {
		return id, err
	}

	id.ObsID, err = parseInt(name, toks[0])
	if err != nil {
		return id, err
	}

	switch {
	case len(toks) == 3 && strings.HasPrefix(toks[2], "ch"):
		id.Second, err = parseInt(name, toks[1])
		if err != nil {
			return id, err
		}
		id.Channel, err = parseChannel(name, toks[2])
		if err != nil {
			return id, err
		}
	case len(toks) == 4 && strings.HasPrefix(toks[2], "ch"):
		id.Channel, err = parseChannel(name, toks[2])
		if err != nil {
			return id, err
		}
		id.Second, err = parseInt(name, toks[3])
		if err != nil {
			return id, err
		}
	default:
		return id, fmt.Errorf("recomb: invalid coarse channel file name %q", filepath.Base(name))
	}
	return id, nil
}

// ParseICSFilename parses the name of an ICS file.
func ParseICSFilename(name string) (FileID, error) {
	var id FileID
	toks, err := splitName(name, ".dat")
	if err != nil {
		return id, err
	}
	if len(toks) != 3 || toks[2] != "ics" {
		return id, fmt.Errorf("recomb: invalid ICS file name %q", filepath.Base(name))
	}

	id.ObsID, err = parseInt(name, toks[0])
	if err != nil {
		return id, err
	}
	id.Second, err = parseInt(name, toks[1])
	if err != nil {
		return id, err
	}
	return id, nil
}

// ParseRawFilename parses the name of a raw link file,
// <obsid>_<second>_vcs<NN>_<part>.dat.
func ParseRawFilename(name string) (FileID, error) {
	var id FileID
	toks, err := splitName(name, ".dat")
	if err != nil {
		return id, err
	}
	if len(toks) != 4 || !strings.HasPrefix(toks[2], "vcs") {
		return id, fmt.Errorf("recomb: invalid raw file name %q", filepath.Base(name))
	}

	id.ObsID, err = parseInt(name, toks[0])
	if err != nil {
		return id, err
	}
	id.Second, err = parseInt(name, toks[1])
	if err != nil {
		return id, err
	}
	id.Link = toks[2]
	part, err := parseInt(name, toks[3])
	if err != nil {
		return id, err
	}
	id.Part = int(part)
	return id, nil
}

// SortedOutputs returns the coarse channel output names of a second,
// along with the swap index, from the coarse channels in label order.
func SortedOutputs(obsid, second int64, freqs []uint32) (swap int, names []string, err error) {
	err = vcs.ValidateChannels(freqs)
	if err != nil {
		return 0, nil, err
	}
	swap, sorted := vcs.Order(freqs)
	return swap, OutputFilenames(obsid, second, sorted), nil
}
