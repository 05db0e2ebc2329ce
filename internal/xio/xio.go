// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xio holds bulk-transfer helpers for large fixed-size buffers.
package xio // import "github.com/go-lpc/recombine/internal/xio"

import (
	"errors"
	"fmt"
	"io"
)

// ChunkSize is the maximum number of bytes handed to a single
// Read or Write call.
const ChunkSize = 1 << 20

var (
	ErrShortRead  = errors.New("xio: short read")
	ErrShortWrite = io.ErrShortWrite
)

// ReadFull reads exactly len(p) bytes from r, in chunks of at most
// ChunkSize bytes, until p is filled or r stops making progress.
// A shortfall is reported as an error wrapping ErrShortRead and the
// error returned by r, if any.
func ReadFull(r io.Reader, p []byte) (int, error) {
	var (
		n   int
		err error
	)
	for n < len(p) {
		var nn int
		nn, err = r.Read(p[n:min(n+ChunkSize, len(p))])
		n += nn
		if err != nil || nn <= 0 {
			break
		}
	}

	if n == len(p) {
		return n, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w (got=%d, want=%d)", ErrShortRead, n, len(p))
	}
	return n, fmt.Errorf("%w (got=%d, want=%d): %w", ErrShortRead, n, len(p), err)
}

// WriteFull writes all of p to w, in chunks of at most ChunkSize bytes,
// until p is exhausted or w stops making progress.
// A shortfall is reported as an error wrapping ErrShortWrite and the
// error returned by w, if any.
func WriteFull(w io.Writer, p []byte) (int, error) {
	var (
		n   int
		err error
	)
	for n < len(p) {
		var nn int
		nn, err = w.Write(p[n:min(n+ChunkSize, len(p))])
		n += nn
		if err != nil || nn <= 0 {
			break
		}
	}

	if n == len(p) {
		return n, nil
	}

	if err == nil || errors.Is(err, io.ErrShortWrite) {
		return n, fmt.Errorf("%w (got=%d, want=%d)", ErrShortWrite, n, len(p))
	}
	return n, fmt.Errorf("%w (got=%d, want=%d): %w", ErrShortWrite, n, len(p), err)
}
