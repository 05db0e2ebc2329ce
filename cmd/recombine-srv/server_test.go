// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/go-lpc/recombine/vcs"
)

type testMsg struct {
	mu   sync.Mutex
	msgs []string
}

func (msg *testMsg) printf(lvl, format string, args ...interface{}) {
	msg.mu.Lock()
	defer msg.mu.Unlock()
	msg.msgs = append(msg.msgs, lvl+": "+fmt.Sprintf(format, args...))
}

func (msg *testMsg) Debugf(format string, args ...interface{}) { msg.printf("DBG", format, args...) }
func (msg *testMsg) Infof(format string, args ...interface{})  { msg.printf("INFO", format, args...) }
func (msg *testMsg) Errorf(format string, args ...interface{}) { msg.printf("ERR", format, args...) }

func newTestMeta(obsid int64) vcs.Metadata {
	meta := vcs.Metadata{
		ObsID:    obsid,
		Channels: make([]uint32, vcs.NumChannels),
		Flags:    make([]uint8, vcs.NumBoards*vcs.NumTiles),
	}
	for i := range meta.Channels {
		meta.Channels[i] = uint32(57 + i)
	}
	return meta
}

func TestConfigure(t *testing.T) {
	srv := newServer(newMetrics(prometheus.NewRegistry()))
	msg := new(testMsg)

	for _, tc := range []struct {
		name string
		body string
		want error
	}{
		{name: "invalid-json", body: "{"},
		{name: "unknown-field", body: `{"obsid": 1, "odir": "out", "metadata": "m.json", "foo": 1}`},
		{name: "no-obsid", body: `{"odir": "out", "metadata": "m.json"}`, want: vcs.ErrConfig},
		{name: "no-odir", body: `{"obsid": 1, "metadata": "m.json"}`, want: vcs.ErrConfig},
		{name: "no-meta", body: `{"obsid": 1, "odir": "out"}`, want: vcs.ErrConfig},
		{name: "meta-and-db", body: `{"obsid": 1, "odir": "out", "metadata": "m.json", "db": "dsn"}`, want: vcs.ErrConfig},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := srv.configure(msg, []byte(tc.body))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%+v, want=%v", err, tc.want)
			}
		})
	}

	err := srv.configure(msg, []byte(`{"obsid": 1, "odir": "out", "db": "dsn", "skip_ics": true}`))
	if err != nil {
		t.Fatalf("could not configure: %+v", err)
	}
	if got, want := len(srv.opts), 2; got != want {
		t.Fatalf("invalid number of recombination options: got=%d, want=%d", got, want)
	}
}

func TestSubmit(t *testing.T) {
	srv := newServer(newMetrics(prometheus.NewRegistry()))
	srv.loadDB = func(ctx context.Context, dsn string, obsid int64) (vcs.Metadata, error) {
		if dsn != "dsn" {
			return vcs.Metadata{}, fmt.Errorf("invalid dsn %q", dsn)
		}
		return newTestMeta(0), nil
	}
	msg := new(testMsg)

	err := srv.submit(msg, []byte(`{"second": 2, "files": ["a.dat"]}`))
	if err == nil {
		t.Fatalf("expected an error submitting a job before /init")
	}

	err = srv.initialize(context.Background(), msg)
	if !errors.Is(err, vcs.ErrConfig) {
		t.Fatalf("invalid error initializing an unconfigured process: %+v", err)
	}

	err = srv.configure(msg, []byte(`{"obsid": 42, "odir": "out", "db": "dsn"}`))
	if err != nil {
		t.Fatalf("could not configure: %+v", err)
	}

	err = srv.initialize(context.Background(), msg)
	if err != nil {
		t.Fatalf("could not initialize: %+v", err)
	}
	if got, want := srv.meta.ObsID, int64(42); got != want {
		t.Fatalf("invalid obsid: got=%d, want=%d", got, want)
	}

	files := make([]string, vcs.MaxInputs+1)
	raw, err := json.Marshal(jobRequest{Second: 2, Files: files})
	if err != nil {
		t.Fatal(err)
	}
	err = srv.submit(msg, raw)
	if !errors.Is(err, vcs.ErrConfig) {
		t.Fatalf("invalid error: got=%+v, want=%v", err, vcs.ErrConfig)
	}

	for i := 0; i < queueSize; i++ {
		err = srv.submit(msg, []byte(`{"second": 2, "files": ["a.dat"]}`))
		if err != nil {
			t.Fatalf("could not submit job %d: %+v", i, err)
		}
	}
	if got, want := testutil.ToFloat64(srv.metrics.queue), float64(queueSize); got != want {
		t.Fatalf("invalid queue gauge: got=%v, want=%v", got, want)
	}

	err = srv.submit(msg, []byte(`{"second": 2, "files": ["a.dat"]}`))
	if err == nil {
		t.Fatalf("expected an error submitting to a full queue")
	}

	srv.reset()
	err = srv.submit(msg, []byte(`{"second": 2, "files": ["a.dat"]}`))
	if err == nil {
		t.Fatalf("expected an error submitting a job after /reset")
	}
}

func TestLoop(t *testing.T) {
	tmp, err := os.MkdirTemp("", "recombine-srv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	metaFile := filepath.Join(tmp, "meta.json")
	raw, err := json.Marshal(newTestMeta(7))
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(metaFile, raw, 0644)
	if err != nil {
		t.Fatal(err)
	}

	// a regular file where the output directory should be.
	odir := filepath.Join(tmp, "odir")
	err = os.WriteFile(odir, nil, 0644)
	if err != nil {
		t.Fatal(err)
	}

	srv := newServer(newMetrics(prometheus.NewRegistry()))
	msg := new(testMsg)

	cfg, err := json.Marshal(config{ObsID: 7, Meta: metaFile, Dir: odir, SkipChannels: true})
	if err != nil {
		t.Fatal(err)
	}
	err = srv.configure(msg, cfg)
	if err != nil {
		t.Fatalf("could not configure: %+v", err)
	}
	err = srv.initialize(context.Background(), msg)
	if err != nil {
		t.Fatalf("could not initialize: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- srv.loop(ctx, msg)
	}()

	err = srv.submit(msg, []byte(`{"second": 3, "files": ["vcs01.dat"]}`))
	if err != nil {
		t.Fatalf("could not submit job: %+v", err)
	}

	timeout := time.After(10 * time.Second)
	for testutil.ToFloat64(srv.metrics.jobs.WithLabelValues("error")) != 1 {
		select {
		case <-timeout:
			t.Fatalf("job did not fail in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	err = <-done
	if err != nil {
		t.Fatalf("could not run loop: %+v", err)
	}

	if got := testutil.ToFloat64(srv.metrics.jobs.WithLabelValues("ok")); got != 0 {
		t.Fatalf("invalid number of successful jobs: %v", got)
	}
}

func TestLoopICS(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full second recombination")
	}

	tmp, err := os.MkdirTemp("", "recombine-srv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	metaFile := filepath.Join(tmp, "meta.json")
	raw, err := json.Marshal(newTestMeta(7))
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(metaFile, raw, 0644)
	if err != nil {
		t.Fatal(err)
	}

	srv := newServer(newMetrics(prometheus.NewRegistry()))
	msg := new(testMsg)

	odir := filepath.Join(tmp, "out")
	cfg, err := json.Marshal(config{ObsID: 7, Meta: metaFile, Dir: odir, SkipChannels: true})
	if err != nil {
		t.Fatal(err)
	}
	err = srv.configure(msg, cfg)
	if err != nil {
		t.Fatalf("could not configure: %+v", err)
	}
	err = srv.initialize(context.Background(), msg)
	if err != nil {
		t.Fatalf("could not initialize: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = srv.loop(ctx, msg)
	}()

	err = srv.submit(msg, []byte(`{"second": 3, "files": []}`))
	if err != nil {
		t.Fatalf("could not submit job: %+v", err)
	}

	_, ics := srv.queues()
	select {
	case data := <-ics:
		if got, want := len(data), vcs.ICSSize; got != want {
			t.Fatalf("invalid ICS frame size: got=%d, want=%d", got, want)
		}
	case <-time.After(2 * time.Minute):
		t.Fatalf("no ICS frame published")
	}

	_, err = os.Stat(filepath.Join(odir, "7_3_ics.dat"))
	if err != nil {
		t.Fatalf("could not stat ICS file: %+v", err)
	}

	if got := testutil.ToFloat64(srv.metrics.jobs.WithLabelValues("ok")); got != 1 {
		t.Fatalf("invalid number of successful jobs: %v", got)
	}
	if got := testutil.ToFloat64(srv.metrics.padded); got != vcs.MaxInputs {
		t.Fatalf("invalid number of padded slots: %v", got)
	}
}
