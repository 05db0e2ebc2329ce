// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recomb recombines one second of raw VCS link data into
// per coarse channel streams and an incoherent sum (ICS) stream.
//
// Each of the (up to) 32 physical links carries, for one (board, lane)
// pair, the packets of all 24 coarse channels.
// The recombination routes the links into a board×lane matrix and
// gathers, for every coarse channel, the 64-tile groups of all boards
// into a single stream, while summing the power of the unflagged tiles
// into the ICS stream.
package recomb // import "github.com/go-lpc/recombine/recomb"

import (
	"errors"
	"log"
	"os"

	"github.com/go-lpc/recombine/vcs"
)

var (
	// ErrIO reports a short read from a link or a short write to an output.
	ErrIO = errors.New("recomb: i/o error")
)

// Option configures the recombination of a second.
type Option func(*config)

type config struct {
	msg   *log.Logger
	ics   bool
	chans bool
	stats *Stats

	mmap      bool
	readAhead bool

	blocks int
}

func newConfig() config {
	return config{
		msg:       log.New(os.Stdout, "recomb: ", 0),
		ics:       true,
		chans:     true,
		readAhead: true,
		blocks:    vcs.BlocksPerSecond,
	}
}

// WithLogger sets the logger used to report padded links and run
// summaries.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithoutICS disables the incoherent sum.
func WithoutICS() Option {
	return func(cfg *config) {
		cfg.ics = false
	}
}

// WithoutChannels disables the coarse channel outputs.
func WithoutChannels() Option {
	return func(cfg *config) {
		cfg.chans = false
	}
}

// WithStats collects run statistics into stats.
func WithStats(stats *Stats) Option {
	return func(cfg *config) {
		cfg.stats = stats
	}
}

// WithMmap configures OpenInputs to memory-map the link files instead
// of reading them through the file descriptor.
func WithMmap(v bool) Option {
	return func(cfg *config) {
		cfg.mmap = v
	}
}

// WithReadAhead configures whether OpenInputs advises the kernel the
// link files will be read sequentially.
func WithReadAhead(v bool) Option {
	return func(cfg *config) {
		cfg.readAhead = v
	}
}

// Stats summarizes a recombination run.
type Stats struct {
	Links        int   // links routed into the matrix
	Padded       int   // zero-padded matrix slots
	Blocks       int   // blocks processed
	DeadBlocks   int64 // padded 64-tile groups skipped by the ICS
	BytesRead    int64 // bytes read from the links
	BytesWritten int64 // bytes written to the channel and ICS outputs
}
