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
	"errors"
	"math"
	"math/rand"
	"testing"
)

func testRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func mustAdd(t *testing.T, reg *Registry, p Process, err error) Handle {
	t.Helper()
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	return reg.Add(p)
}

func TestConstant(t *testing.T) {
	c := NewConstant(3.5)
	for i := 0; i < 10; i++ {
		if c.Get() != 3.5 {
			t.Fatalf("constant changed to %g at step %d", c.Get(), i)
		}
		c.Step()
	}
}

func TestGaussianNoiseResamplesEachTick(t *testing.T) {
	rng := testRand()
	g, err := NewGaussianNoise(rng, 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	const n = 20000
	var sum float64
	changed := false
	prev := g.Get()
	for i := 0; i < n; i++ {
		g.Step()
		v := g.Get()
		if v != prev {
			changed = true
		}
		prev = v
		sum += v
	}
	if !changed {
		t.Fatalf("value never changed over %d steps", n)
	}
	mean := sum / n
	if math.Abs(mean-10) > 0.1 {
		t.Fatalf("empirical mean %g too far from 10", mean)
	}
}

func TestBirthDeathStaysWithinLimits(t *testing.T) {
	rng := testRand()
	var reg Registry
	birth := reg.Add(NewConstant(5))
	death := reg.Add(NewConstant(1))
	p, err := NewBirthDeath(rng, &reg, birth, death, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(p)
	for i := 0; i < 5000; i++ {
		reg.StepAll()
		v := p.Get()
		if v < 0 || v > 10 {
			t.Fatalf("population %g escaped [0, 10] at step %d", v, i)
		}
	}
}

func TestBirthDeathClampsBirthsBeforeDeaths(t *testing.T) {
	rng := testRand()
	var reg Registry
	birth := reg.Add(NewConstant(0))
	death := reg.Add(NewConstant(50))
	p, err := NewBirthDeath(rng, &reg, birth, death, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(p)
	for i := 0; i < 100; i++ {
		reg.StepAll()
		if v := p.Get(); v < 0 {
			t.Fatalf("population went negative: %g", v)
		}
	}
	if v := p.Get(); v != 0 {
		t.Fatalf("population should have died out, got %g", v)
	}
}

func TestPwConstantSeasonalWrapsOverTwoCycles(t *testing.T) {
	p, err := NewPwConstant([]int{3, 2}, []float64{10, 20}, true)
	if err != nil {
		t.Fatal(err)
	}
	// Schedule: 10 while t<=3 in phase 0, 20 while t<=2 in phase 1, wrap.
	want := []float64{
		10, 10, 10, 10, 20, 20, 20, // first cycle, ticks 0-6
		10, 10, 10, 10, 20, 20, 20, // second cycle, ticks 7-13
		10, // wrap again
	}
	for tick, w := range want {
		if g := p.Get(); g != w {
			t.Fatalf("tick %d: got %g, want %g", tick, g, w)
		}
		p.Step()
	}
}

func TestPwConstantNonSeasonalHoldsFinalValue(t *testing.T) {
	p, err := NewPwConstant([]int{2, 1}, []float64{5, 9}, false)
	if err != nil {
		t.Fatal(err)
	}
	for tick := 0; tick < 50; tick++ {
		want := 5.0
		if tick >= 3 {
			want = 9.0
		}
		if g := p.Get(); g != want {
			t.Fatalf("tick %d: got %g, want %g", tick, g, want)
		}
		p.Step()
	}
}

func TestIntegratedAccumulatesBaseRate(t *testing.T) {
	var reg Registry
	base := reg.Add(NewConstant(2.0))
	p, err := NewIntegrated(&reg, base, 5.0)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(p)
	if g := p.Get(); g != 7.0 {
		t.Fatalf("initial value: got %g, want 7", g)
	}
	for k := 1; k <= 25; k++ {
		reg.StepAll()
		want := 7.0 + 2.0*float64(k)
		if g := p.Get(); g != want {
			t.Fatalf("after %d steps: got %g, want %g", k, g, want)
		}
	}
}

func TestReplayedCycles(t *testing.T) {
	p, err := NewReplayed([]float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 1, 2, 3, 1}
	for i, w := range want {
		if g := p.Get(); g != w {
			t.Fatalf("tick %d: got %g, want %g", i, g, w)
		}
		p.Step()
	}
}

func TestSumAndProductAreLazyNoOps(t *testing.T) {
	var reg Registry
	a := reg.Add(NewConstant(3))
	b := reg.Add(NewConstant(4))
	sum, err := NewSum(&reg, a, b)
	if err != nil {
		t.Fatal(err)
	}
	prod, err := NewProduct(&reg, a, b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if g := sum.Get(); g != 7 {
			t.Fatalf("sum: got %g, want 7", g)
		}
		if g := prod.Get(); g != 12 {
			t.Fatalf("product: got %g, want 12", g)
		}
		// Stepping the composites themselves must not touch components.
		sum.Step()
		prod.Step()
	}
}

func TestSumSeesPostStepComponentValues(t *testing.T) {
	var reg Registry
	r1, err := NewReplayed([]float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	h := reg.Add(r1)
	c := reg.Add(NewConstant(10))
	sum, err := NewSum(&reg, h, c)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(sum)
	if g := sum.Get(); g != 11 {
		t.Fatalf("before step: got %g, want 11", g)
	}
	reg.StepAll()
	if g := sum.Get(); g != 12 {
		t.Fatalf("after step: got %g, want 12", g)
	}
}

func TestOnOffTransitions(t *testing.T) {
	rng := testRand()
	var reg Registry
	one := reg.Add(NewConstant(1))
	zero := reg.Add(NewConstant(0))

	// Certain transitions in both directions: alternates every tick.
	p, err := NewOnOff(rng, &reg, one, one)
	if err != nil {
		t.Fatal(err)
	}
	if g := p.Get(); g != 0 {
		t.Fatalf("initial state: got %g, want off", g)
	}
	for i := 0; i < 10; i++ {
		p.Step()
		want := 1.0
		if i%2 == 1 {
			want = 0.0
		}
		if g := p.Get(); g != want {
			t.Fatalf("step %d: got %g, want %g", i+1, g, want)
		}
	}

	// Zero turn-on probability: stays off forever.
	q, err := NewOnOff(rng, &reg, one, zero)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		q.Step()
		if g := q.Get(); g != 0 {
			t.Fatalf("step %d: turned on despite zero probability", i)
		}
	}
}

func TestTransformedAppliesLazily(t *testing.T) {
	var reg Registry
	r, err := NewReplayed([]float64{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	h := reg.Add(r)
	p, err := NewTransformed(&reg, h, func(x float64) float64 { return x * x })
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(p)
	if g := p.Get(); g != 4 {
		t.Fatalf("got %g, want 4", g)
	}
	reg.StepAll()
	if g := p.Get(); g != 9 {
		t.Fatalf("after step: got %g, want 9", g)
	}
}

func TestConstructorValidation(t *testing.T) {
	rng := testRand()
	var reg Registry
	h := reg.Add(NewConstant(1))

	cases := []struct {
		name string
		err  error
	}{
		{"gaussian nil rng", func() error { _, err := NewGaussianNoise(nil, 0, 1); return err }()},
		{"gaussian negative std", func() error { _, err := NewGaussianNoise(rng, 0, -1); return err }()},
		{"birth-death negative init", func() error { _, err := NewBirthDeath(rng, &reg, h, h, -1, 0); return err }()},
		{"birth-death negative limit", func() error { _, err := NewBirthDeath(rng, &reg, h, h, 0, -1); return err }()},
		{"birth-death init above limit", func() error { _, err := NewBirthDeath(rng, &reg, h, h, 5, 3); return err }()},
		{"birth-death bad handle", func() error { _, err := NewBirthDeath(rng, &reg, Handle(99), h, 0, 0); return err }()},
		{"pwconstant empty", func() error { _, err := NewPwConstant(nil, nil, true); return err }()},
		{"pwconstant mismatch", func() error { _, err := NewPwConstant([]int{1, 2}, []float64{1}, true); return err }()},
		{"pwconstant zero length", func() error { _, err := NewPwConstant([]int{0}, []float64{1}, true); return err }()},
		{"replayed empty", func() error { _, err := NewReplayed(nil); return err }()},
		{"sum no components", func() error { _, err := NewSum(&reg); return err }()},
		{"product bad handle", func() error { _, err := NewProduct(&reg, Handle(-1)); return err }()},
		{"transformed nil func", func() error { _, err := NewTransformed(&reg, h, nil); return err }()},
		{"integrated bad handle", func() error { _, err := NewIntegrated(&reg, Handle(7), 0); return err }()},
		{"onoff nil rng", func() error { _, err := NewOnOff(nil, &reg, h, h); return err }()},
	}
	for _, tc := range cases {
		if tc.err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
		if !errors.Is(tc.err, ErrInvalidConfig) {
			t.Fatalf("%s: error %v does not wrap ErrInvalidConfig", tc.name, tc.err)
		}
	}
}

// countingProcess records how many times it was stepped.
type countingProcess struct {
	steps int
	value float64
}

func (c *countingProcess) Step()        { c.steps++ }
func (c *countingProcess) Get() float64 { return c.value }

func TestRegistryStepsSharedProcessOnce(t *testing.T) {
	var reg Registry
	leaf := &countingProcess{value: 1}
	h := reg.Add(leaf)
	s1, err := NewSum(&reg, h, h)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(s1)
	s2, err := NewSum(&reg, h)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(s2)

	reg.StepAll()
	if leaf.steps != 1 {
		t.Fatalf("shared leaf stepped %d times in one tick, want exactly 1", leaf.steps)
	}
	if g := s1.Get(); g != 2 {
		t.Fatalf("sum over duplicated handle: got %g, want 2", g)
	}
}

func TestPoissonSampler(t *testing.T) {
	rng := testRand()
	if n := poisson(rng, 0); n != 0 {
		t.Fatalf("poisson(0) = %d, want 0", n)
	}
	if n := poisson(rng, -3); n != 0 {
		t.Fatalf("poisson(-3) = %d, want 0", n)
	}
	for _, lambda := range []float64{0.5, 4, 60} {
		const n = 20000
		var sum float64
		for i := 0; i < n; i++ {
			k := poisson(rng, lambda)
			if k < 0 {
				t.Fatalf("negative draw %d for lambda %g", k, lambda)
			}
			sum += float64(k)
		}
		mean := sum / n
		if math.Abs(mean-lambda) > 4*math.Sqrt(lambda/n)+0.05 {
			t.Fatalf("lambda %g: empirical mean %g too far off", lambda, mean)
		}
	}
}
