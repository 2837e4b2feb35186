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

package sim

import (
	"context"
	"log"
	"time"
)

// Point is one emitted reading: a measurement name, a single float field,
// a timestamp, and the device's tag set.
type Point struct {
	Measurement string
	Value       float64
	Time        time.Time
	Tags        map[string]string
}

// Sink receives the points produced by the environment. Implementations
// live in internal/sinks; write failures are the sink's (or a retrying
// decorator's) concern — the environment logs, drops the point, and keeps
// ticking.
type Sink interface {
	Write(ctx context.Context, p Point) error
}

// Hooks receive loop lifecycle notifications. All fields are optional.
type Hooks struct {
	// TickDone is called after every full tick with its wall-clock cost.
	TickDone func(elapsed time.Duration)
	// Absent is called for every device reading that produced no data.
	Absent func(d Device)
}

// Environment owns the process arena and the device registry and drives the
// step loop. Both registries are mutated during setup only and read during
// the run; the whole simulation is single-threaded and synchronous.
type Environment struct {
	procs   Registry
	devices []Device

	// Hooks may be set before the run starts.
	Hooks Hooks
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment { return &Environment{} }

// Processes exposes the process arena for composite construction.
func (e *Environment) Processes() *Registry { return &e.procs }

// AddProcess registers a process and returns its handle.
func (e *Environment) AddProcess(p Process) Handle { return e.procs.Add(p) }

// AddDevice registers a device and returns it.
func (e *Environment) AddDevice(d Device) Device {
	e.devices = append(e.devices, d)
	return d
}

// Devices returns the registered devices in registration order.
func (e *Environment) Devices() []Device { return e.devices }

// Tick advances the simulation by one logical step: every process first,
// then every device. Devices therefore always sample post-step process
// values. Order among processes must not matter: a process's Step may read
// collaborator values (rates), never a peer's fresh value, and composites
// fold their components lazily at Get time, after the whole pass.
func (e *Environment) Tick() {
	e.procs.StepAll()
	for _, d := range e.devices {
		d.Step()
	}
}

// Run drives the live loop: tick, emit present readings to sink, sleep
// interval, forever. The loop only ends when ctx is cancelled; the ctx
// error is returned so callers can tell an external stop from a deadline.
func (e *Environment) Run(ctx context.Context, interval time.Duration, sink Sink) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			e.Tick()
			e.emit(ctx, sink, time.Now())
			if e.Hooks.TickDone != nil {
				e.Hooks.TickDone(time.Since(start))
			}
		}
	}
}

// Generate runs steps ticks in batch mode against sink, advancing a logical
// clock by dt per tick instead of pacing in real time. Stepping semantics
// are identical to Run.
func (e *Environment) Generate(ctx context.Context, steps int, dt time.Duration, sink Sink) error {
	now := time.Now()
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		e.Tick()
		e.emit(ctx, sink, now)
		if e.Hooks.TickDone != nil {
			e.Hooks.TickDone(time.Since(start))
		}
		now = now.Add(dt)
	}
	return nil
}

// emit forwards one point per device with a present reading. Absent
// readings are skipped, not written as zeros. A failed write drops that one
// point; the simulation never aborts on a sink error.
func (e *Environment) emit(ctx context.Context, sink Sink, now time.Time) {
	for _, d := range e.devices {
		v, ok := d.Get()
		if !ok {
			if e.Hooks.Absent != nil {
				e.Hooks.Absent(d)
			}
			continue
		}
		p := Point{Measurement: d.Measurement(), Value: v, Time: now, Tags: d.Tags()}
		if err := sink.Write(ctx, p); err != nil {
			log.Printf("sink write failed for device %s: %v (point dropped)", d.Name(), err)
		}
	}
}
