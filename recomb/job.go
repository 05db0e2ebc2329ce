// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/recombine/vcs"
)

// Job describes the recombination of one second of an observation into
// files of an output directory.
type Job struct {
	Second int64
	Inputs []string // link files
	Dir    string   // output directory, created if missing
	Meta   vcs.Metadata

	// ICS, when set, receives a copy of the ICS output.
	ICS io.Writer
}

// Outputs returns the names of the coarse channel files, in label order,
// and of the ICS file produced by the job.
func (job Job) Outputs() (chans []string, ics string, err error) {
	_, chans, err = SortedOutputs(job.Meta.ObsID, job.Second, job.Meta.Channels)
	if err != nil {
		return nil, "", err
	}
	for i, name := range chans {
		chans[i] = filepath.Join(job.Dir, name)
	}
	ics = filepath.Join(job.Dir, ICSFilename(job.Meta.ObsID, job.Second))
	return chans, ics, nil
}

// Run recombines the second described by job.
// The metadata is validated before any file is opened.
func (job Job) Run(ctx context.Context, opts ...Option) (Stats, error) {
	var stats Stats

	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	err := job.Meta.Validate()
	if err != nil {
		return stats, fmt.Errorf("recomb: invalid metadata for obs %d: %w", job.Meta.ObsID, err)
	}
	flags, err := job.Meta.TileFlags()
	if err != nil {
		return stats, err
	}
	swap, _ := vcs.Order(job.Meta.Channels)

	if len(job.Inputs) > vcs.MaxInputs {
		return stats, fmt.Errorf(
			"%w: too many links (got=%d, max=%d)",
			vcs.ErrConfig, len(job.Inputs), vcs.MaxInputs,
		)
	}

	chans, ics, err := job.Outputs()
	if err != nil {
		return stats, err
	}

	err = os.MkdirAll(job.Dir, 0755)
	if err != nil {
		return stats, fmt.Errorf("%w: could not create output directory: %w", ErrIO, err)
	}

	inputs, closer, err := OpenInputs(job.Inputs, opts...)
	if err != nil {
		return stats, err
	}
	defer closer.Close()

	var (
		outs  Outputs
		files []*os.File
	)
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	create := func(fname string) (*os.File, error) {
		f, err := os.Create(fname)
		if err != nil {
			return nil, fmt.Errorf("%w: could not create output file: %w", ErrIO, err)
		}
		files = append(files, f)
		return f, nil
	}

	if cfg.chans {
		for i, fname := range chans {
			f, err := create(fname)
			if err != nil {
				return stats, err
			}
			outs.Channels[i] = f
		}
	}
	if cfg.ics {
		f, err := create(ics)
		if err != nil {
			return stats, err
		}
		outs.ICS = f
		if job.ICS != nil {
			outs.ICS = io.MultiWriter(f, job.ICS)
		}
	}

	opts = append(opts[:len(opts):len(opts)], WithStats(&stats))
	err = Run(ctx, inputs, outs, swap, &flags, opts...)
	if err != nil {
		return stats, err
	}

	for _, f := range files {
		err = f.Close()
		if err != nil {
			return stats, fmt.Errorf("%w: could not close output file: %w", ErrIO, err)
		}
	}
	files = nil

	return stats, nil
}

// ReadFileList reads link file names, one per line, from r.
// Empty lines are ignored.
func ReadFileList(r io.Reader) ([]string, error) {
	var (
		fnames []string
		scan   = bufio.NewScanner(r)
	)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		fnames = append(fnames, line)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("recomb: could not read file list: %w", err)
	}
	if len(fnames) > vcs.MaxInputs {
		return nil, fmt.Errorf(
			"%w: too many links in file list (got=%d, max=%d)",
			vcs.ErrConfig, len(fnames), vcs.MaxInputs,
		)
	}
	return fnames, nil
}
