// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command recombine recombines one second of raw VCS link files into
// 24 coarse channel files and an incoherent sum (ICS) file.
//
// Usage: recombine [OPTIONS] -o OBSID -t SECOND -i ODIR (-m META.json | -db DSN) [FILE1 [FILE2 ...]]
//
// Example:
//
//	$> recombine -o 1096952256 -t 1096952400 -m 1096952256.json -i ./out \
//	     1096952256_1096952400_vcs01_0.dat 1096952256_1096952400_vcs02_0.dat
//	$> ls ./out
//	1096952256_1096952400_ch109.dat
//	[...]
//	1096952256_1096952400_ch132.dat
//	1096952256_1096952400_ics.dat
package main // import "github.com/go-lpc/recombine/cmd/recombine"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sbinet/pmon"

	"github.com/go-lpc/recombine"
	"github.com/go-lpc/recombine/metadb"
	"github.com/go-lpc/recombine/recomb"
	"github.com/go-lpc/recombine/vcs"
)

func main() {
	log.SetPrefix("recombine: ")
	log.SetFlags(0)

	err := xmain(os.Args[1:])
	if err != nil {
		switch {
		case errors.Is(err, vcs.ErrConfig):
			log.Fatalf("configuration error: %+v", err)
		case errors.Is(err, recomb.ErrIO):
			log.Fatalf("i/o error: %+v", err)
		default:
			log.Fatalf("%+v", err)
		}
	}
}

type options struct {
	obsid  int64
	second int64
	meta   string
	db     string
	odir   string
	list   string
	files  []string

	skipChans bool
	skipICS   bool
	mmap      bool

	pmon bool
	freq time.Duration
}

func xmain(args []string) error {
	var (
		opt  options
		fset = flag.NewFlagSet("recombine", flag.ContinueOnError)
	)

	fset.Int64Var(&opt.obsid, "o", 0, "observation ID")
	fset.Int64Var(&opt.second, "t", -1, "second ID (GPS seconds)")
	fset.StringVar(&opt.meta, "m", "", "path to the JSON metadata file of the observation")
	fset.StringVar(&opt.db, "db", "", "DSN of the observation metadata database")
	fset.StringVar(&opt.odir, "i", "", "output directory, created if missing")
	fset.StringVar(&opt.list, "g", "", "path to a file listing the input files, one per line")
	fset.BoolVar(&opt.skipChans, "c", false, "skip the coarse channel outputs")
	fset.BoolVar(&opt.skipICS, "s", false, "skip the ICS output")
	fset.BoolVar(&opt.mmap, "mmap", false, "memory-map the input files")
	fset.BoolVar(&opt.pmon, "pmon", false, "enable pmon monitoring")
	fset.DurationVar(&opt.freq, "pmon-freq", 1*time.Second, "pmon frequency")
	version := fset.Bool("version", false, "print version and exit")

	fset.Usage = func() {
		fmt.Printf(`recombine recombines one second of VCS link files into coarse channel files.

Usage: recombine [OPTIONS] -o OBSID -t SECOND -i ODIR (-m META.json | -db DSN) [FILE1 [FILE2 ...]]

ex:
 $> recombine -o 1096952256 -t 1096952400 -m 1096952256.json -i ./out ./vcs01.dat ./vcs02.dat
 $> recombine -o 1096952256 -t 1096952400 -db "user:pass@tcp(host:3306)/mwa" -i ./out -g files.txt

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	if *version {
		v, sum := recombine.Version()
		fmt.Printf("recombine %s %s\n", v, sum)
		return nil
	}

	opt.files = fset.Args()

	err = opt.validate()
	if err != nil {
		fset.Usage()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return run(ctx, opt)
}

func (opt *options) validate() error {
	switch {
	case opt.obsid == 0:
		return fmt.Errorf("%w: observation ID not specified", vcs.ErrConfig)
	case opt.second < 0:
		return fmt.Errorf("%w: second ID not specified", vcs.ErrConfig)
	case opt.odir == "":
		return fmt.Errorf("%w: output directory not specified", vcs.ErrConfig)
	case opt.meta == "" && opt.db == "":
		return fmt.Errorf("%w: metadata file or database not specified", vcs.ErrConfig)
	case opt.meta != "" && opt.db != "":
		return fmt.Errorf("%w: metadata file and database are mutually exclusive", vcs.ErrConfig)
	case len(opt.files) == 0 && opt.list == "":
		return fmt.Errorf("%w: list of input files or file listing input files not specified", vcs.ErrConfig)
	case len(opt.files) != 0 && opt.list != "":
		return fmt.Errorf("%w: input files and file listing input files are mutually exclusive", vcs.ErrConfig)
	case len(opt.files) > vcs.MaxInputs:
		return fmt.Errorf("%w: no more than %d input files may be specified", vcs.ErrConfig, vcs.MaxInputs)
	}
	return nil
}

func run(ctx context.Context, opt options) error {
	meta, err := loadMetadata(ctx, opt)
	if err != nil {
		return err
	}

	fnames := opt.files
	if opt.list != "" {
		fnames, err = readList(opt.list)
		if err != nil {
			return err
		}
	}

	if opt.pmon {
		err = monitor(opt)
		if err != nil {
			return err
		}
	}

	job := recomb.Job{
		Second: opt.second,
		Inputs: fnames,
		Dir:    opt.odir,
		Meta:   meta,
	}

	opts := []recomb.Option{
		recomb.WithLogger(log.Default()),
		recomb.WithMmap(opt.mmap),
	}
	if opt.skipChans {
		opts = append(opts, recomb.WithoutChannels())
	}
	if opt.skipICS {
		opts = append(opts, recomb.WithoutICS())
	}

	start := time.Now()
	stats, err := job.Run(ctx, opts...)
	if err != nil {
		return fmt.Errorf("could not recombine obs %d, second %d: %w", opt.obsid, opt.second, err)
	}

	log.Printf(
		"obs %d, second %d: %d links, %d blocks, %d bytes read, %d bytes written in %v",
		opt.obsid, opt.second, stats.Links, stats.Blocks,
		stats.BytesRead, stats.BytesWritten, time.Since(start),
	)
	return nil
}

func loadMetadata(ctx context.Context, opt options) (vcs.Metadata, error) {
	if opt.db != "" {
		db, err := metadb.Open(opt.db)
		if err != nil {
			return vcs.Metadata{}, fmt.Errorf("could not open metadata db: %w", err)
		}
		defer db.Close()

		return db.Metadata(ctx, opt.obsid)
	}

	meta, err := vcs.ReadMetadata(opt.meta)
	if err != nil {
		return meta, err
	}
	if meta.ObsID != 0 && meta.ObsID != opt.obsid {
		log.Printf("metadata file %q describes obs %d, using obs %d", opt.meta, meta.ObsID, opt.obsid)
	}
	meta.ObsID = opt.obsid
	return meta, nil
}

func readList(fname string) ([]string, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("could not open file list: %w", err)
	}
	defer f.Close()

	return recomb.ReadFileList(f)
}

// monitor starts monitoring the resources used by the current process.
// Monitoring ends with the process.
func monitor(opt options) error {
	err := os.MkdirAll(opt.odir, 0755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return fmt.Errorf("could not start monitoring (pid=%d): %w", os.Getpid(), err)
	}

	f, err := os.Create(filepath.Join(opt.odir, fmt.Sprintf("%d_%d-pmon.log", opt.obsid, opt.second)))
	if err != nil {
		return fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = opt.freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run pmon: %+v", err)
		}
	}()
	return nil
}
