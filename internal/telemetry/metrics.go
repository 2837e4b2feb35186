// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry holds the Prometheus instrumentation of the run loop:
// tick counts and cost, emitted points, absent readings, and sink errors.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"envsim/internal/sim"
	"envsim/internal/sinks"
)

// Metrics bundles the simulator's collectors.
type Metrics struct {
	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
	Points       prometheus.Counter
	Absent       prometheus.Counter
	SinkErrors   prometheus.Counter
	SinkRetries  prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envsim_ticks_total", Help: "Simulation ticks completed"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "envsim_tick_duration_seconds", Help: "Wall-clock cost of one tick including emission",
			Buckets: prometheus.DefBuckets}),
		Points: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envsim_points_emitted_total", Help: "Points written to the sink"}),
		Absent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envsim_readings_absent_total", Help: "Device readings with no data (dropout or dead sensors)"}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envsim_sink_errors_total", Help: "Sink writes that failed after all retries (points dropped)"}),
		SinkRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envsim_sink_retries_total", Help: "Individual sink write attempts that failed and were retried"}),
	}
	reg.MustRegister(m.Ticks, m.TickDuration, m.Points, m.Absent, m.SinkErrors, m.SinkRetries)
	return m
}

// Hooks returns environment hooks feeding these collectors.
func (m *Metrics) Hooks() sim.Hooks {
	return sim.Hooks{
		TickDone: func(elapsed time.Duration) {
			m.Ticks.Inc()
			m.TickDuration.Observe(elapsed.Seconds())
		},
		Absent: func(sim.Device) { m.Absent.Inc() },
	}
}

// InstrumentSink wraps a sink to count emitted points and dropped writes.
type InstrumentSink struct {
	inner   sinks.Sink
	metrics *Metrics
}

// Instrument decorates inner with the point/error counters.
func (m *Metrics) Instrument(inner sinks.Sink) *InstrumentSink {
	return &InstrumentSink{inner: inner, metrics: m}
}

func (s *InstrumentSink) Write(ctx context.Context, p sim.Point) error {
	if err := s.inner.Write(ctx, p); err != nil {
		s.metrics.SinkErrors.Inc()
		return err
	}
	s.metrics.Points.Inc()
	return nil
}

func (s *InstrumentSink) Close() error { return s.inner.Close() }
