// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"fmt"
	"io"
	"os"

	"github.com/go-lpc/recombine/internal/mmap"
	"github.com/go-lpc/recombine/vcs"
)

// Input is a physical link.
// A nil reader marks an absent link, padded with zeros.
type Input struct {
	Name string
	R    io.Reader
}

// Absent returns whether the link has no stream behind it.
func (in Input) Absent() bool { return in.R == nil }

// OpenInputs opens the named link files.
// A file that can not be opened is logged and yields an absent input.
// The returned closer releases all the opened files.
func OpenInputs(fnames []string, opts ...Option) ([]Input, io.Closer, error) {
	if len(fnames) > vcs.MaxInputs {
		return nil, nil, fmt.Errorf(
			"%w: too many links (got=%d, max=%d)",
			vcs.ErrConfig, len(fnames), vcs.MaxInputs,
		)
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		inputs = make([]Input, len(fnames))
		cs     = make(closers, 0, len(fnames))
	)
	for i, fname := range fnames {
		inputs[i].Name = fname
		r, c, err := openInput(fname, cfg)
		if err != nil {
			cfg.msg.Printf(
				"warning: stream id: %d name: %s failed to open, input will be padded with zeros: %+v",
				i, fname, err,
			)
			continue
		}
		inputs[i].R = r
		cs = append(cs, c)
	}

	return inputs, cs, nil
}

func openInput(fname string, cfg config) (io.Reader, io.Closer, error) {
	if cfg.mmap {
		h, err := mmap.Open(fname)
		if err != nil {
			return nil, nil, err
		}
		return io.NewSectionReader(h, 0, int64(h.Len())), h, nil
	}

	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}

	if cfg.readAhead {
		err = fadvise(f)
		if err != nil {
			cfg.msg.Printf("could not advise sequential read of %q: %+v", fname, err)
		}
	}

	return f, f, nil
}

type closers []io.Closer

func (cs closers) Close() error {
	var err error
	for _, c := range cs {
		e := c.Close()
		if e != nil && err == nil {
			err = fmt.Errorf("recomb: could not close link: %w", e)
		}
	}
	return err
}
