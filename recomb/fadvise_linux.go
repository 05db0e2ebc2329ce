// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package recomb

import (
	"os"

	"golang.org/x/sys/unix"
)

func fadvise(f *os.File) error {
	fd := int(f.Fd())
	err := unix.Fadvise(fd, 0, 0, unix.FADV_SEQUENTIAL)
	if err != nil {
		return err
	}
	return unix.Fadvise(fd, 0, 0, unix.FADV_WILLNEED)
}
