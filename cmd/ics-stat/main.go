// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ics-stat histograms the incoherent sum (ICS) values of ICS files,
// per lane and per coarse channel.
//
// Usage: ics-stat [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> ics-stat -o ics.yoda ./1096952256_1096952400_ics.dat
//	=== 1096952256_1096952400_ics.dat ===
//	lane=0 entries=3840000 mean=  12.301 std-dev=   3.112
//	[...]
package main // import "github.com/go-lpc/recombine/cmd/ics-stat"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"go-hep.org/x/hep/hbook"

	"github.com/go-lpc/recombine/internal/xio"
	"github.com/go-lpc/recombine/vcs"
)

const usage = `ics-stat histograms the values of ICS files, per lane and per coarse channel.

Usage: ics-stat [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> ics-stat -o ics.yoda ./1096952256_1096952400_ics.dat
 === 1096952256_1096952400_ics.dat ===
 lane=0 entries=3840000 mean=  12.301 std-dev=   3.112
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("ics-stat: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("ics-stat", flag.ExitOnError)

		oname = fset.String("o", "", "path to output YODA file")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input ICS file")
	}

	var out io.Writer = io.Discard
	if *oname != "" {
		f, err := os.Create(*oname)
		if err != nil {
			log.Fatalf("could not create output YODA file: %+v", err)
		}
		defer func() {
			err := f.Close()
			if err != nil {
				log.Fatalf("could not close output YODA file: %+v", err)
			}
		}()
		out = f
	}

	for _, fname := range fset.Args() {
		err := process(w, out, fname)
		if err != nil {
			log.Fatalf("could not process file %q: %+v", fname, err)
		}
	}
}

type stats struct {
	lanes [vcs.NumLanes]*hbook.H1D
	chans [vcs.NumChannels]*hbook.H1D
}

func newStats(name string) *stats {
	var st stats
	for i := range st.lanes {
		h := hbook.NewH1D(256, 0, 256)
		h.Annotation()["name"] = fmt.Sprintf("%s-lane-%d", name, i)
		st.lanes[i] = h
	}
	for i := range st.chans {
		h := hbook.NewH1D(256, 0, 256)
		h.Annotation()["name"] = fmt.Sprintf("%s-ch-%02d", name, i)
		st.chans[i] = h
	}
	return &st
}

// fill accumulates a chunk of ICS values starting at offset off.
func (st *stats) fill(p []byte, off int) {
	const (
		perLane = vcs.NumGroups * vcs.NumSubBands
		perChan = vcs.NumLanes * perLane
	)
	for i, v := range p {
		var (
			pos  = off + i
			lane = (pos / perLane) % vcs.NumLanes
			ch   = (pos / perChan) % vcs.NumChannels
			x    = float64(v)
		)
		st.lanes[lane].Fill(x, 1)
		st.chans[ch].Fill(x, 1)
	}
}

func process(w, yoda io.Writer, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open ICS file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat ICS file: %w", err)
	}
	size := int(fi.Size())
	if size%vcs.ICSBlockSize != 0 {
		log.Printf("file %q holds a partial block (size=%d)", fname, size)
	}

	var (
		st  = newStats(filepath.Base(fname))
		buf = make([]byte, xio.ChunkSize)
	)
	for off := 0; off < size; {
		n := min(len(buf), size-off)
		_, err := xio.ReadFull(f, buf[:n])
		if err != nil {
			return fmt.Errorf("could not read ICS file: %w", err)
		}
		st.fill(buf[:n], off)
		off += n
	}

	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(fname))
	for i, h := range st.lanes {
		fmt.Fprintf(wbuf, "lane=%d entries=%d mean=%8.3f std-dev=%8.3f\n",
			i, h.Entries(), mean(h), stddev(h),
		)
	}

	for _, hs := range [][]*hbook.H1D{st.lanes[:], st.chans[:]} {
		for _, h := range hs {
			raw, err := h.MarshalYODA()
			if err != nil {
				return fmt.Errorf("could not marshal histogram %q to YODA: %w", h.Name(), err)
			}
			_, err = yoda.Write(raw)
			if err != nil {
				return fmt.Errorf("could not write histogram %q: %w", h.Name(), err)
			}
		}
	}

	return nil
}

func mean(h *hbook.H1D) float64 {
	if h.Entries() == 0 {
		return 0
	}
	return h.XMean()
}

func stddev(h *hbook.H1D) float64 {
	if h.Entries() < 2 {
		return 0
	}
	return h.XStdDev()
}
