// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recomb

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-lpc/recombine/vcs"
)

func TestFilenames(t *testing.T) {
	if got, want := ChannelFilename(1070978272, 1070978400, 64), "1070978272_1070978400_ch64.dat"; got != want {
		t.Fatalf("invalid channel file name: got=%q, want=%q", got, want)
	}
	if got, want := ICSFilename(1070978272, 1070978400), "1070978272_1070978400_ics.dat"; got != want {
		t.Fatalf("invalid ICS file name: got=%q, want=%q", got, want)
	}

	freqs := make([]uint32, vcs.NumChannels)
	for i := range freqs {
		freqs[i] = uint32(140 - i)
	}
	swap, names, err := SortedOutputs(1, 2, freqs)
	if err != nil {
		t.Fatalf("could not build output names: %+v", err)
	}
	if got, want := swap, 12; got != want {
		t.Fatalf("invalid swap index: got=%d, want=%d", got, want)
	}
	if got, want := names[0], "1_2_ch117.dat"; got != want {
		t.Fatalf("invalid first output: got=%q, want=%q", got, want)
	}
	if got, want := names[23], "1_2_ch140.dat"; got != want {
		t.Fatalf("invalid last output: got=%q, want=%q", got, want)
	}

	freqs[3] = freqs[4]
	_, _, err = SortedOutputs(1, 2, freqs)
	if !errors.Is(err, vcs.ErrConfig) {
		t.Fatalf("invalid error: got=%+v, want=%v", err, vcs.ErrConfig)
	}
}

func TestParseFilename(t *testing.T) {
	for _, tc := range []struct {
		name  string
		parse func(string) (FileID, error)
		want  FileID
		err   bool
	}{
		{
			name:  "/data/1070978272_1401856338_ch164.dat",
			parse: ParseChannelFilename,
			want:  FileID{ObsID: 1070978272, Second: 1401856338, Channel: 164},
		},
		{
			name:  "1070978272_c_ch05_1386943943.dat",
			parse: ParseChannelFilename,
			want:  FileID{ObsID: 1070978272, Second: 1386943943, Channel: 5},
		},
		{
			name:  "1070978272_1401856338_ics.dat",
			parse: ParseChannelFilename,
			err:   true,
		},
		{
			name:  "1070978272_1401856338_chXX.dat",
			parse: ParseChannelFilename,
			err:   true,
		},
		{
			name:  "1070978272_1401856338_ch164.tar",
			parse: ParseChannelFilename,
			err:   true,
		},
		{
			name:  "1070978272_1401856338_ics.dat",
			parse: ParseICSFilename,
			want:  FileID{ObsID: 1070978272, Second: 1401856338},
		},
		{
			name:  "1070978272_1401856338_ch164.dat",
			parse: ParseICSFilename,
			err:   true,
		},
		{
			name:  "1096952256_1096952400_vcs07_1.dat",
			parse: ParseRawFilename,
			want:  FileID{ObsID: 1096952256, Second: 1096952400, Link: "vcs07", Part: 1},
		},
		{
			name:  "1096952256_1096952400_ch07_1.dat",
			parse: ParseRawFilename,
			err:   true,
		},
		{
			name:  "1096952256_xx_vcs07_1.dat",
			parse: ParseRawFilename,
			err:   true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.parse(tc.name)
			switch {
			case tc.err && err == nil:
				t.Fatalf("expected an error, got %+v", got)
			case !tc.err && err != nil:
				t.Fatalf("could not parse %q: %+v", tc.name, err)
			}
			if tc.err {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid file id:\ngot= %+v\nwant=%+v", got, tc.want)
			}
		})
	}
}
