// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-daq/tdaq"

	"github.com/go-lpc/recombine/metadb"
	"github.com/go-lpc/recombine/recomb"
	"github.com/go-lpc/recombine/vcs"
)

const queueSize = 64

type msgstream interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// config is the payload of the /config command.
type config struct {
	ObsID int64  `json:"obsid"`
	Meta  string `json:"metadata"`
	DB    string `json:"db"`
	Dir   string `json:"odir"`

	Mmap         bool `json:"mmap"`
	SkipChannels bool `json:"skip_channels"`
	SkipICS      bool `json:"skip_ics"`
}

func (cfg config) validate() error {
	switch {
	case cfg.ObsID == 0:
		return fmt.Errorf("%w: observation ID not specified", vcs.ErrConfig)
	case cfg.Dir == "":
		return fmt.Errorf("%w: output directory not specified", vcs.ErrConfig)
	case cfg.Meta == "" && cfg.DB == "":
		return fmt.Errorf("%w: metadata file or database not specified", vcs.ErrConfig)
	case cfg.Meta != "" && cfg.DB != "":
		return fmt.Errorf("%w: metadata file and database are mutually exclusive", vcs.ErrConfig)
	}
	return nil
}

// jobRequest is the payload of the /job command.
type jobRequest struct {
	Second int64    `json:"second"`
	Files  []string `json:"files"`
}

type server struct {
	mu   sync.Mutex
	cfg  config
	meta vcs.Metadata
	init bool

	jobs chan jobRequest
	ics  chan []byte

	metrics *metrics
	opts    []recomb.Option

	loadDB func(ctx context.Context, dsn string, obsid int64) (vcs.Metadata, error)
}

func newServer(m *metrics) *server {
	return &server{
		metrics: m,
		loadDB:  loadDB,
	}
}

func loadDB(ctx context.Context, dsn string, obsid int64) (vcs.Metadata, error) {
	db, err := metadb.Open(dsn)
	if err != nil {
		return vcs.Metadata{}, fmt.Errorf("could not open metadata db: %w", err)
	}
	defer db.Close()

	return db.Metadata(ctx, obsid)
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return srv.configure(ctx.Msg, req.Body)
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return srv.initialize(ctx.Ctx, ctx.Msg)
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.reset()
	return nil
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	srv.mu.Lock()
	n := 0
	if srv.jobs != nil {
		n = len(srv.jobs)
	}
	srv.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> queued=%d", n)
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (srv *server) OnJob(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /job command...")
	return srv.submit(ctx.Msg, req.Body)
}

func (srv *server) configure(msg msgstream, body []byte) error {
	var cfg config
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	err := dec.Decode(&cfg)
	if err != nil {
		msg.Errorf("could not decode /config payload: %+v", err)
		return fmt.Errorf("could not decode /config payload: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		msg.Errorf("invalid configuration: %+v", err)
		return err
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.cfg = cfg
	srv.init = false

	srv.opts = []recomb.Option{recomb.WithMmap(cfg.Mmap)}
	if cfg.SkipChannels {
		srv.opts = append(srv.opts, recomb.WithoutChannels())
	}
	if cfg.SkipICS {
		srv.opts = append(srv.opts, recomb.WithoutICS())
	}

	msg.Infof("configured obs %d (odir=%q)", cfg.ObsID, cfg.Dir)
	return nil
}

func (srv *server) initialize(ctx context.Context, msg msgstream) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	cfg := srv.cfg
	if err := cfg.validate(); err != nil {
		msg.Errorf("could not initialize unconfigured process: %+v", err)
		return fmt.Errorf("could not initialize: %w", err)
	}

	var (
		meta vcs.Metadata
		err  error
	)
	switch {
	case cfg.DB != "":
		meta, err = srv.loadDB(ctx, cfg.DB, cfg.ObsID)
	default:
		meta, err = vcs.ReadMetadata(cfg.Meta)
	}
	if err != nil {
		msg.Errorf("could not load metadata of obs %d: %+v", cfg.ObsID, err)
		return fmt.Errorf("could not load metadata of obs %d: %w", cfg.ObsID, err)
	}
	meta.ObsID = cfg.ObsID

	srv.meta = meta
	srv.jobs = make(chan jobRequest, queueSize)
	srv.ics = make(chan []byte, 1)
	srv.init = true
	srv.metrics.queue.Set(0)

	swap, _ := vcs.Order(meta.Channels)
	msg.Infof("initialized obs %d (swap=%d)", cfg.ObsID, swap)
	return nil
}

func (srv *server) reset() {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.init = false
	srv.jobs = nil
	srv.ics = nil
	srv.metrics.queue.Set(0)
}

func (srv *server) submit(msg msgstream, body []byte) error {
	var req jobRequest
	err := json.Unmarshal(body, &req)
	if err != nil {
		msg.Errorf("could not decode /job payload: %+v", err)
		return fmt.Errorf("could not decode /job payload: %w", err)
	}
	switch {
	case req.Second < 0:
		return fmt.Errorf("%w: invalid second %d", vcs.ErrConfig, req.Second)
	case len(req.Files) > vcs.MaxInputs:
		return fmt.Errorf("%w: too many links (got=%d, max=%d)", vcs.ErrConfig, len(req.Files), vcs.MaxInputs)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if !srv.init {
		msg.Errorf("received /job before /init")
		return fmt.Errorf("could not submit job: process not initialized")
	}

	select {
	case srv.jobs <- req:
		srv.metrics.queue.Set(float64(len(srv.jobs)))
	default:
		msg.Errorf("job queue full, dropping second %d", req.Second)
		return fmt.Errorf("could not submit job for second %d: queue full", req.Second)
	}
	return nil
}

func (srv *server) queues() (chan jobRequest, chan []byte) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.jobs, srv.ics
}

func (srv *server) icsOutput(ctx tdaq.Context, dst *tdaq.Frame) error {
	_, ics := srv.queues()
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-ics:
		dst.Body = data
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	return srv.loop(ctx.Ctx, ctx.Msg)
}

func (srv *server) loop(ctx context.Context, msg msgstream) error {
	jobs, ics := srv.queues()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-jobs:
			srv.metrics.queue.Set(float64(len(jobs)))
			data, err := srv.process(ctx, msg, req)
			if err != nil {
				msg.Errorf("could not recombine second %d: %+v", req.Second, err)
				continue
			}
			if data == nil {
				continue
			}
			select {
			case ics <- data:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (srv *server) process(ctx context.Context, msg msgstream, req jobRequest) ([]byte, error) {
	srv.mu.Lock()
	var (
		cfg  = srv.cfg
		meta = srv.meta
		opts = append([]recomb.Option(nil), srv.opts...)
	)
	srv.mu.Unlock()

	var ics *bytes.Buffer
	if !cfg.SkipICS {
		ics = new(bytes.Buffer)
	}

	job := recomb.Job{
		Second: req.Second,
		Inputs: req.Files,
		Dir:    cfg.Dir,
		Meta:   meta,
	}
	if ics != nil {
		job.ICS = ics
	}

	start := time.Now()
	stats, err := job.Run(ctx, opts...)
	srv.metrics.observe(stats, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	msg.Infof(
		"recombined second %d: links=%d, padded=%d, written=%d bytes",
		req.Second, stats.Links, stats.Padded, stats.BytesWritten,
	)
	if ics == nil {
		return nil, nil
	}
	return ics.Bytes(), nil
}
