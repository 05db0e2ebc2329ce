// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/recombine/vcs"
)

func writeMeta(t *testing.T, fname string, obsid int64, chans []uint32) {
	t.Helper()
	meta := vcs.Metadata{
		ObsID:    obsid,
		Channels: chans,
		Flags:    make([]uint8, vcs.NumBoards*vcs.NumTiles),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("could not marshal metadata: %+v", err)
	}
	err = os.WriteFile(fname, raw, 0644)
	if err != nil {
		t.Fatalf("could not write metadata: %+v", err)
	}
}

func channels(start uint32) []uint32 {
	chans := make([]uint32, vcs.NumChannels)
	for i := range chans {
		chans[i] = start + uint32(i)
	}
	return chans
}

func TestOptionsValidate(t *testing.T) {
	valid := func() options {
		return options{
			obsid:  1,
			second: 2,
			meta:   "meta.json",
			odir:   "out",
			files:  []string{"a.dat"},
		}
	}

	opt := valid()
	err := opt.validate()
	if err != nil {
		t.Fatalf("could not validate options: %+v", err)
	}

	for _, tc := range []struct {
		name string
		mod  func(opt *options)
	}{
		{"no-obsid", func(opt *options) { opt.obsid = 0 }},
		{"no-second", func(opt *options) { opt.second = -1 }},
		{"no-odir", func(opt *options) { opt.odir = "" }},
		{"no-meta", func(opt *options) { opt.meta = "" }},
		{"meta-and-db", func(opt *options) { opt.db = "dsn" }},
		{"no-input", func(opt *options) { opt.files = nil }},
		{"files-and-list", func(opt *options) { opt.list = "files.txt" }},
		{"too-many-files", func(opt *options) { opt.files = make([]string, vcs.MaxInputs+1) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opt := valid()
			tc.mod(&opt)
			err := opt.validate()
			if !errors.Is(err, vcs.ErrConfig) {
				t.Fatalf("invalid error: got=%+v, want=%v", err, vcs.ErrConfig)
			}
		})
	}
}

func TestDuplicateChannel(t *testing.T) {
	tmp, err := os.MkdirTemp("", "recombine-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	chans := channels(100)
	chans[0] = chans[1]

	meta := filepath.Join(tmp, "meta.json")
	writeMeta(t, meta, 1, chans)

	odir := filepath.Join(tmp, "out")
	err = xmain([]string{
		"-o", "1", "-t", "2", "-m", meta, "-i", odir, "-pmon",
		filepath.Join(tmp, "vcs01.dat"),
	})
	if !errors.Is(err, vcs.ErrConfig) {
		t.Fatalf("invalid error: got=%+v, want=%v", err, vcs.ErrConfig)
	}

	_, err = os.Stat(odir)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output directory created for an invalid configuration: %+v", err)
	}
}

func TestRecombineICS(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full second recombination")
	}

	tmp, err := os.MkdirTemp("", "recombine-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	meta := filepath.Join(tmp, "meta.json")
	writeMeta(t, meta, 1096952256, channels(120))

	list := filepath.Join(tmp, "files.txt")
	err = os.WriteFile(list, []byte(strings.Join([]string{
		filepath.Join(tmp, "1096952256_1096952400_vcs01_0.dat"),
		filepath.Join(tmp, "1096952256_1096952400_vcs02_0.dat"),
	}, "\n")), 0644)
	if err != nil {
		t.Fatalf("could not write file list: %+v", err)
	}

	odir := filepath.Join(tmp, "out")
	err = xmain([]string{
		"-o", "1096952256", "-t", "1096952400",
		"-m", meta, "-i", odir, "-g", list, "-c",
	})
	if err != nil {
		t.Fatalf("could not recombine: %+v", err)
	}

	ics, err := os.ReadFile(filepath.Join(odir, "1096952256_1096952400_ics.dat"))
	if err != nil {
		t.Fatalf("could not read ICS file: %+v", err)
	}
	if got, want := len(ics), vcs.ICSSize; got != want {
		t.Fatalf("invalid ICS size: got=%d, want=%d", got, want)
	}
	for i, v := range ics {
		if v != 0 {
			t.Fatalf("invalid ICS value at %d: got=%d, want=0", i, v)
		}
	}
}
