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

// The process variants form a closed set. Leaves (Constant, GaussianNoise,
// PwConstant, Replayed) carry their own state; composites (BirthDeath,
// Integrated, OnOff, Sum, Product, Transformed) reference collaborators
// through registry handles and never own or step them.

// Constant reports the same value forever.
type Constant struct {
	value float64
}

// NewConstant returns a process fixed at v.
func NewConstant(v float64) *Constant { return &Constant{value: v} }

func (c *Constant) Step()        {}
func (c *Constant) Get() float64 { return c.value }

// GaussianNoise resamples an i.i.d. normal value each tick; there is no
// memory across ticks.
type GaussianNoise struct {
	rng   *rand.Rand
	mean  float64
	std   float64
	value float64
}

// NewGaussianNoise returns a process drawing N(mean, std²) per tick.
// The initial value is drawn at construction.
func NewGaussianNoise(rng *rand.Rand, mean, std float64) (*GaussianNoise, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: gaussian noise requires a random source", ErrInvalidConfig)
	}
	if std < 0 {
		return nil, fmt.Errorf("%w: gaussian noise std %g is negative", ErrInvalidConfig, std)
	}
	g := &GaussianNoise{rng: rng, mean: mean, std: std}
	g.value = g.std*rng.NormFloat64() + g.mean
	return g, nil
}

func (g *GaussianNoise) Step()        { g.value = g.std*g.rng.NormFloat64() + g.mean }
func (g *GaussianNoise) Get() float64 { return g.value }

// BirthDeath is a discretized birth-death population process. Both rates are
// read from collaborator processes, so the process can be non-homogeneous
// (e.g. piecewise-constant arrival schedules). The lower limit is always 0;
// limit bounds the population from above, 0 meaning unbounded.
type BirthDeath struct {
	rng       *rand.Rand
	reg       *Registry
	birthRate Handle
	deathRate Handle
	value     int64
	limit     int64
}

// NewBirthDeath returns a population process. Per tick it draws
// nBirth ~ Poisson(birthRate) and nDeath ~ Poisson(deathRate), applies and
// clamps births before subtracting deaths.
func NewBirthDeath(rng *rand.Rand, reg *Registry, birthRate, deathRate Handle, init, limit int64) (*BirthDeath, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: birth-death requires a random source", ErrInvalidConfig)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: birth-death requires a registry", ErrInvalidConfig)
	}
	if err := reg.check(birthRate, "birth rate"); err != nil {
		return nil, err
	}
	if err := reg.check(deathRate, "death rate"); err != nil {
		return nil, err
	}
	if init < 0 {
		return nil, fmt.Errorf("%w: birth-death initial population %d is negative", ErrInvalidConfig, init)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: birth-death limit %d is negative", ErrInvalidConfig, limit)
	}
	if limit > 0 && init > limit {
		return nil, fmt.Errorf("%w: birth-death initial population %d exceeds limit %d", ErrInvalidConfig, init, limit)
	}
	return &BirthDeath{rng: rng, reg: reg, birthRate: birthRate, deathRate: deathRate, value: init, limit: limit}, nil
}

func (b *BirthDeath) Step() {
	nBirth := poisson(b.rng, b.reg.Value(b.birthRate))
	nDeath := poisson(b.rng, b.reg.Value(b.deathRate))
	// Births are applied and clamped before deaths are subtracted.
	b.value += nBirth
	if b.limit > 0 && b.value > b.limit {
		b.value = b.limit
	}
	b.value -= nDeath
	if b.value < 0 {
		b.value = 0
	}
}

func (b *BirthDeath) Get() float64 { return float64(b.value) }

// PwConstant holds values[phase] for phaseLengths[phase] ticks before
// advancing to the next phase. Seasonal schedules wrap back to phase 0
// after the last phase; non-seasonal ones hold the final value forever.
type PwConstant struct {
	phaseLengths []int
	values       []float64
	seasonal     bool
	t            int
	phase        int
	value        float64
}

// NewPwConstant returns a piecewise-constant process. phaseLengths and
// values must be non-empty, of equal length, with every length positive.
func NewPwConstant(phaseLengths []int, values []float64, seasonal bool) (*PwConstant, error) {
	if len(phaseLengths) == 0 {
		return nil, fmt.Errorf("%w: piecewise-constant process needs at least one phase", ErrInvalidConfig)
	}
	if len(phaseLengths) != len(values) {
		return nil, fmt.Errorf("%w: piecewise-constant process has %d phase lengths but %d values",
			ErrInvalidConfig, len(phaseLengths), len(values))
	}
	for i, l := range phaseLengths {
		if l <= 0 {
			return nil, fmt.Errorf("%w: piecewise-constant phase %d has non-positive length %d", ErrInvalidConfig, i, l)
		}
	}
	return &PwConstant{
		phaseLengths: append([]int(nil), phaseLengths...),
		values:       append([]float64(nil), values...),
		seasonal:     seasonal,
		value:        values[0],
	}, nil
}

func (p *PwConstant) Step() {
	p.t++
	if p.t <= p.phaseLengths[p.phase] {
		return
	}
	if p.phase == len(p.values)-1 {
		if !p.seasonal {
			// Phases exhausted: hold the last value indefinitely.
			p.t = p.phaseLengths[p.phase]
			return
		}
		p.phase = 0
	} else {
		p.phase++
	}
	p.t = 0
	p.value = p.values[p.phase]
}

func (p *PwConstant) Get() float64 { return p.value }

// Integrated is a running sum of a base process's instantaneous values. The
// base is read as a rate: value starts at base+offset and grows by the
// base's current value every tick.
type Integrated struct {
	reg   *Registry
	base  Handle
	value float64
}

// NewIntegrated returns the discrete integral of base, initialized to
// base.Get()+offset.
func NewIntegrated(reg *Registry, base Handle, offset float64) (*Integrated, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: integrated process requires a registry", ErrInvalidConfig)
	}
	if err := reg.check(base, "base"); err != nil {
		return nil, err
	}
	return &Integrated{reg: reg, base: base, value: reg.Value(base) + offset}, nil
}

func (p *Integrated) Step()        { p.value += p.reg.Value(p.base) }
func (p *Integrated) Get() float64 { return p.value }

// Replayed cycles deterministically through a fixed ordered sample sequence.
type Replayed struct {
	samples []float64
	t       int
}

// NewReplayed returns a process replaying samples in order, wrapping after
// the last one.
func NewReplayed(samples []float64) (*Replayed, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: replayed process needs at least one sample", ErrInvalidConfig)
	}
	return &Replayed{samples: append([]float64(nil), samples...)}, nil
}

func (p *Replayed) Step() {
	p.t++
	if p.t > len(p.samples)-1 {
		p.t = 0
	}
}

func (p *Replayed) Get() float64 { return p.samples[p.t] }

// Sum reads its components lazily and reports their sum. Step is a no-op:
// components are stepped once per tick by the registry, never by composites,
// so sharing a component between sums cannot double-step it.
type Sum struct {
	reg        *Registry
	components []Handle
}

// NewSum returns the lazy sum of the component processes.
func NewSum(reg *Registry, components ...Handle) (*Sum, error) {
	if err := checkComponents(reg, components); err != nil {
		return nil, err
	}
	return &Sum{reg: reg, components: append([]Handle(nil), components...)}, nil
}

func (p *Sum) Step() {}

func (p *Sum) Get() float64 {
	var s float64
	for _, h := range p.components {
		s += p.reg.Value(h)
	}
	return s
}

// Product reads its components lazily and reports their product. Step is a
// no-op for the same sharing reason as Sum.
type Product struct {
	reg        *Registry
	components []Handle
}

// NewProduct returns the lazy product of the component processes.
func NewProduct(reg *Registry, components ...Handle) (*Product, error) {
	if err := checkComponents(reg, components); err != nil {
		return nil, err
	}
	return &Product{reg: reg, components: append([]Handle(nil), components...)}, nil
}

func (p *Product) Step() {}

func (p *Product) Get() float64 {
	s := 1.0
	for _, h := range p.components {
		s *= p.reg.Value(h)
	}
	return s
}

// OnOff is a binary-state process flipping between 0 and 1 with transition
// probabilities read from collaborator processes each tick.
type OnOff struct {
	rng     *rand.Rand
	reg     *Registry
	onToOff Handle
	offToOn Handle
	on      bool
}

// NewOnOff returns a two-state process. While off it turns on with
// probability offToOn; while on it turns off with probability onToOff.
// The probability processes should stay within [0, 1].
func NewOnOff(rng *rand.Rand, reg *Registry, onToOff, offToOn Handle) (*OnOff, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: on-off process requires a random source", ErrInvalidConfig)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: on-off process requires a registry", ErrInvalidConfig)
	}
	if err := reg.check(onToOff, "on-to-off probability"); err != nil {
		return nil, err
	}
	if err := reg.check(offToOn, "off-to-on probability"); err != nil {
		return nil, err
	}
	return &OnOff{rng: rng, reg: reg, onToOff: onToOff, offToOn: offToOn}, nil
}

func (p *OnOff) Step() {
	if p.on {
		if bernoulli(p.rng, p.reg.Value(p.onToOff)) {
			p.on = false
		}
	} else {
		if bernoulli(p.rng, p.reg.Value(p.offToOn)) {
			p.on = true
		}
	}
}

func (p *OnOff) Get() float64 {
	if p.on {
		return 1
	}
	return 0
}

// Transformed applies f to the base value lazily at read time. Step is a
// no-op; the base is stepped by the registry.
type Transformed struct {
	reg  *Registry
	base Handle
	f    func(float64) float64
}

// NewTransformed returns a lazy transformation of base.
func NewTransformed(reg *Registry, base Handle, f func(float64) float64) (*Transformed, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: transformed process requires a registry", ErrInvalidConfig)
	}
	if err := reg.check(base, "base"); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: transformed process requires a transformation", ErrInvalidConfig)
	}
	return &Transformed{reg: reg, base: base, f: f}, nil
}

func (p *Transformed) Step()        {}
func (p *Transformed) Get() float64 { return p.f(p.reg.Value(p.base)) }

// check validates that h refers to a registered process.
func (r *Registry) check(h Handle, role string) error {
	if int(h) < 0 || int(h) >= len(r.procs) {
		return fmt.Errorf("%w: %s handle %d is out of range (registry has %d processes)",
			ErrInvalidConfig, role, h, len(r.procs))
	}
	return nil
}

func checkComponents(reg *Registry, components []Handle) error {
	if reg == nil {
		return fmt.Errorf("%w: composite process requires a registry", ErrInvalidConfig)
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: composite process needs at least one component", ErrInvalidConfig)
	}
	for _, h := range components {
		if err := reg.check(h, "component"); err != nil {
			return err
		}
	}
	return nil
}
