// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// vcs-dump decodes and displays the identity headers of raw VCS link files.
//
// Usage: vcs-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> vcs-dump -n 2 ./1096952256_1096952400_vcs03_0.dat
//	=== 1096952256_1096952400_vcs03_0.dat ===
//	obs-id:  1096952256
//	second:  1096952400
//	link:    vcs03
//	  pkt=0 w1=0x0000 w2=0x0020 w3=0x4000 board=1 lane=2
//	  pkt=1 w1=0x0000 w2=0x0020 w3=0x4000 board=1 lane=2
package main // import "github.com/go-lpc/recombine/cmd/vcs-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/recombine/internal/xio"
	"github.com/go-lpc/recombine/recomb"
	"github.com/go-lpc/recombine/vcs"
)

const usage = `vcs-dump decodes and displays the identity headers of raw VCS link files.

Usage: vcs-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> vcs-dump -n 2 ./1096952256_1096952400_vcs03_0.dat
 === 1096952256_1096952400_vcs03_0.dat ===
 obs-id:  1096952256
 second:  1096952400
 link:    vcs03
   pkt=0 w1=0x0000 w2=0x0020 w3=0x4000 board=1 lane=2
   pkt=1 w1=0x0000 w2=0x0020 w3=0x4000 board=1 lane=2

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("vcs-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("vcs-dump", flag.ExitOnError)

		npkts = fset.Int("n", 1, "number of packet headers to display per file")
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
		log.Fatalf("missing path to input VCS file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *npkts)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, npkts int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(fname))
	if id, err := recomb.ParseRawFilename(fname); err == nil {
		fmt.Fprintf(wbuf, "obs-id:  %d\n", id.ObsID)
		fmt.Fprintf(wbuf, "second:  %d\n", id.Second)
		fmt.Fprintf(wbuf, "link:    %s\n", id.Link)
	}

	var (
		r   = bufio.NewReaderSize(f, xio.ChunkSize)
		pkt = make([]byte, vcs.PacketSize)
	)
	for i := 0; i < npkts; i++ {
		n, err := xio.ReadFull(r, pkt)
		if err != nil {
			if n == 0 && errors.Is(err, xio.ErrShortRead) {
				break
			}
			if n < vcs.HeaderSize {
				return fmt.Errorf("could not read header of packet %d: %w", i, err)
			}
		}

		hdr, err := vcs.DecodeHeader(pkt[:n])
		if err != nil {
			return fmt.Errorf("could not decode header of packet %d: %w", i, err)
		}
		fmt.Fprintf(wbuf, "  pkt=%d w1=0x%04x w2=0x%04x w3=0x%04x board=%d lane=%d\n",
			i, hdr.W1, hdr.W2, hdr.W3, hdr.Board, hdr.Lane,
		)
		if n < len(pkt) {
			break
		}
	}

	return nil
}
