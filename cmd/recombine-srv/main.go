// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command recombine-srv starts a TDAQ process running recombination jobs.
//
// The process is configured with a JSON payload sent along the /config
// command:
//
//	{"obsid": 1096952256, "metadata": "1096952256.json", "odir": "/data/out"}
//
// where the metadata may instead be retrieved from a database with
// "db": "user:pass@tcp(host:3306)/mwa".
// Jobs are submitted with the /job command:
//
//	{"second": 1096952400, "files": ["1096952256_1096952400_vcs01_0.dat", ...]}
//
// The ICS of each recombined second is published on the /ics output.
// Metrics are served in the Prometheus format on $RECOMBINE_METRICS_ADDR
// (default: ":9310").
package main // import "github.com/go-lpc/recombine/cmd/recombine-srv"

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cmd := flags.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	addr := os.Getenv("RECOMBINE_METRICS_ADDR")
	if addr == "" {
		addr = ":9310"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		err := http.ListenAndServe(addr, mux)
		if err != nil {
			log.Printf("could not serve metrics on %q: %+v", addr, err)
		}
	}()

	dev := newServer(newMetrics(reg))

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)
	srv.CmdHandle("/job", dev.OnJob)

	srv.OutputHandle("/ics", dev.icsOutput)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
