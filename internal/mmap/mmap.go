// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides memory-mapped block buffers and read-only
// memory-mapped files.
package mmap // import "github.com/go-lpc/recombine/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a memory mapping, released with Close.
type Handle struct {
	data []byte
}

func handleFrom(data []byte) *Handle {
	h := &Handle{data: data}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h
}

// Alloc returns a zeroed, private, anonymous mapping of n bytes.
func Alloc(n int) (*Handle, error) {
	if n <= 0 {
		return nil, fmt.Errorf("mmap: invalid allocation size %d", n)
	}
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not allocate %d bytes: %w", n, err)
	}
	return handleFrom(data), nil
}

// Open maps the named file read-only.
func Open(fname string) (*Handle, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmap: could not stat %q: %w", fname, err)
	}

	size := fi.Size()
	switch {
	case size == 0:
		return &Handle{data: []byte{}}, nil
	case size < 0 || int64(int(size)) != size:
		return nil, fmt.Errorf("mmap: invalid file size %d for %q", size, fname)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map %q: %w", fname, err)
	}
	return handleFrom(data), nil
}

// Close releases the mapping.
// Closing an already closed handle is a no-op.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	if cap(data) == 0 {
		return nil
	}
	return unix.Munmap(data)
}

// Len returns the length of the underlying mapping.
func (h *Handle) Len() int {
	return len(h.data)
}

// At returns the byte at index i.
func (h *Handle) At(i int) byte {
	return h.data[i]
}

// Bytes returns the mapped memory.
// The returned slice must not be used after Close.
func (h *Handle) Bytes() []byte {
	return h.data
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Arena tracks the buffers allocated for a run so they can be
// released together, exactly once.
type Arena struct {
	mu  sync.Mutex
	hs  []*Handle
	rel bool
}

// Alloc allocates a zeroed buffer of n bytes owned by the arena.
func (a *Arena) Alloc(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rel {
		return nil, fmt.Errorf("mmap: arena released")
	}

	h, err := Alloc(n)
	if err != nil {
		return nil, err
	}
	a.hs = append(a.hs, h)
	return h.Bytes(), nil
}

// Size returns the number of bytes currently held by the arena.
func (a *Arena) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, h := range a.hs {
		n += h.Len()
	}
	return n
}

// Release unmaps all the buffers of the arena.
// Buffers obtained from the arena must not be used afterwards.
// Release is idempotent.
func (a *Arena) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	for _, h := range a.hs {
		e := h.Close()
		if e != nil && err == nil {
			err = fmt.Errorf("mmap: could not release buffer: %w", e)
		}
	}
	a.hs = nil
	a.rel = true
	return err
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
