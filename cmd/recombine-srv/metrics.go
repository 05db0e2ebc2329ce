// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-lpc/recombine/recomb"
)

const namespace = "recombine"

type metrics struct {
	jobs     *prometheus.CounterVec
	links    prometheus.Gauge
	padded   prometheus.Gauge
	dead     prometheus.Counter
	read     prometheus.Counter
	written  prometheus.Counter
	duration prometheus.Histogram
	queue    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Number of recombination jobs, by status.",
		}, []string{"status"}),
		links: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "links",
			Help:      "Number of links routed in the last recombined second.",
		}),
		padded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "padded_slots",
			Help:      "Number of zero-padded board/lane slots in the last recombined second.",
		}),
		dead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ics_dead_blocks_total",
			Help:      "Number of padded 64-tile groups skipped by the incoherent sum.",
		}),
		read: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_bytes_total",
			Help:      "Number of bytes read from the links.",
		}),
		written: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Number of bytes written to the channel and ICS files.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of recombination jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		queue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_jobs",
			Help:      "Number of jobs waiting to be recombined.",
		}),
	}
}

func (m *metrics) observe(stats recomb.Stats, dt time.Duration, err error) {
	m.duration.Observe(dt.Seconds())
	m.read.Add(float64(stats.BytesRead))
	m.written.Add(float64(stats.BytesWritten))
	m.dead.Add(float64(stats.DeadBlocks))
	if err != nil {
		m.jobs.WithLabelValues("error").Inc()
		return
	}
	m.jobs.WithLabelValues("ok").Inc()
	m.links.Set(float64(stats.Links))
	m.padded.Set(float64(stats.Padded))
}
