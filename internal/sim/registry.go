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

// Package sim implements the synthetic building-telemetry core: stochastic
// scalar processes advanced in discrete ticks, measurements that distort
// process values, and devices that sample measurements with dropout and
// failure overlays.
package sim

import "errors"

// ErrInvalidConfig is wrapped by every constructor validation error.
// Malformed parameters fail fast at setup, never inside the run loop.
var ErrInvalidConfig = errors.New("sim: invalid configuration")

// Process is a scalar time-series generator advanced one logical tick at a
// time. Get must be side-effect-free and return the value as of the last
// Step (or construction, before any step). Step mutates internal state only.
type Process interface {
	Step()
	Get() float64
}

// Handle identifies a process inside a Registry. Composite processes store
// handles instead of direct references, so sharing a sub-process between
// several composites can never lead to it being stepped twice in a tick.
type Handle int

// Registry is a flat arena owning every process of a simulation. It is the
// only component that calls Step: once per registered process per tick, in
// registration order. Composites read collaborator values through Value at
// Get time, after the whole step pass for the tick is done.
type Registry struct {
	procs []Process
}

// Add registers a process and returns its handle. Registration happens
// during setup only; the registry is not safe for concurrent mutation.
func (r *Registry) Add(p Process) Handle {
	r.procs = append(r.procs, p)
	return Handle(len(r.procs) - 1)
}

// Value returns the current value of the process behind h.
func (r *Registry) Value(h Handle) float64 {
	return r.procs[h].Get()
}

// Len reports the number of registered processes.
func (r *Registry) Len() int { return len(r.procs) }

// StepAll advances every registered process by exactly one tick.
func (r *Registry) StepAll() {
	for _, p := range r.procs {
		p.Step()
	}
}
