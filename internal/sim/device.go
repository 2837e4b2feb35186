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
	"fmt"
	"math/rand"
)

// Device is a sampling unit producing absent-or-present readings plus sink
// metadata. Get returns (value, true) for a present reading and (0, false)
// for "no data this tick" — absence is never conflated with a numeric zero.
// Measurement and Tags are stable: they never change across steps.
type Device interface {
	Step()
	Get() (float64, bool)
	Name() string
	Measurement() string
	Tags() map[string]string
}

// BasicDevice samples a Measurement each step. With probability pSkip the
// reading is absent (dropout) instead of a fresh sample.
type BasicDevice struct {
	rng     *rand.Rand
	name    string
	meas    Measurement
	pSkip   float64
	value   float64
	present bool

	measName string
	tags     map[string]string
}

// NewBasicDevice returns a device sampling meas. measName and tags are the
// sink-facing metadata; pSkip must be within [0, 1].
func NewBasicDevice(rng *rand.Rand, name string, meas Measurement, pSkip float64, measName string, tags map[string]string) (*BasicDevice, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: device %q requires a random source", ErrInvalidConfig, name)
	}
	if pSkip < 0 || pSkip > 1 {
		return nil, fmt.Errorf("%w: device %q skip probability %g is outside [0, 1]", ErrInvalidConfig, name, pSkip)
	}
	if measName == "" {
		return nil, fmt.Errorf("%w: device %q has no measurement name", ErrInvalidConfig, name)
	}
	tagCopy := make(map[string]string, len(tags))
	for k, v := range tags {
		tagCopy[k] = v
	}
	return &BasicDevice{
		rng:      rng,
		name:     name,
		meas:     meas,
		pSkip:    pSkip,
		value:    meas.Get(),
		present:  true,
		measName: measName,
		tags:     tagCopy,
	}, nil
}

func (d *BasicDevice) Step() {
	if d.pSkip > 0 && bernoulli(d.rng, d.pSkip) {
		d.present = false
		return
	}
	d.value = d.meas.Get()
	d.present = true
}

func (d *BasicDevice) Get() (float64, bool) {
	if !d.present {
		return 0, false
	}
	return d.value, true
}

func (d *BasicDevice) Name() string            { return d.name }
func (d *BasicDevice) Measurement() string     { return d.measName }
func (d *BasicDevice) Tags() map[string]string { return d.tags }

// DoomedDevice overlays sensor death on another device: it counts a
// remaining lifetime down each step and reports permanently absent once the
// counter hits zero, regardless of the wrapped device. Metadata is forwarded
// unchanged.
type DoomedDevice struct {
	name          string
	inner         Device
	timeRemaining int
}

// NewDoomedDevice wraps inner with a death counter of lifetime ticks.
func NewDoomedDevice(name string, inner Device, lifetime int) (*DoomedDevice, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: device %q wraps nil", ErrInvalidConfig, name)
	}
	if lifetime < 0 {
		return nil, fmt.Errorf("%w: device %q lifetime %d is negative", ErrInvalidConfig, name, lifetime)
	}
	return &DoomedDevice{name: name, inner: inner, timeRemaining: lifetime}, nil
}

func (d *DoomedDevice) Step() {
	// The wrapped device steps first; the overlay's counter applies after.
	d.inner.Step()
	if d.timeRemaining > 0 {
		d.timeRemaining--
	}
}

func (d *DoomedDevice) Get() (float64, bool) {
	if d.timeRemaining == 0 {
		return 0, false
	}
	return d.inner.Get()
}

func (d *DoomedDevice) Name() string            { return d.name }
func (d *DoomedDevice) Measurement() string     { return d.inner.Measurement() }
func (d *DoomedDevice) Tags() map[string]string { return d.inner.Tags() }

// StickyDevice overlays a stuck sensor on another device: while lifetime
// remains it refreshes a cached value from the wrapped device each step;
// once exhausted, Get keeps returning the last cached reading forever.
type StickyDevice struct {
	name          string
	inner         Device
	timeRemaining int
	value         float64
	present       bool
}

// NewStickyDevice wraps inner with a freeze counter of lifetime ticks.
func NewStickyDevice(name string, inner Device, lifetime int) (*StickyDevice, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: device %q wraps nil", ErrInvalidConfig, name)
	}
	if lifetime < 0 {
		return nil, fmt.Errorf("%w: device %q lifetime %d is negative", ErrInvalidConfig, name, lifetime)
	}
	s := &StickyDevice{name: name, inner: inner, timeRemaining: lifetime}
	s.value, s.present = inner.Get()
	return s, nil
}

func (d *StickyDevice) Step() {
	d.inner.Step()
	if d.timeRemaining > 0 {
		d.timeRemaining--
		d.value, d.present = d.inner.Get()
	}
}

func (d *StickyDevice) Get() (float64, bool) {
	if !d.present {
		return 0, false
	}
	return d.value, true
}

func (d *StickyDevice) Name() string            { return d.name }
func (d *StickyDevice) Measurement() string     { return d.inner.Measurement() }
func (d *StickyDevice) Tags() map[string]string { return d.inner.Tags() }
