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
	"math"
	"math/rand"
)

// Distortion maps a true process value to an observed one.
type Distortion func(float64) float64

// Measurement is an observed view of a process: distortion applied to the
// process's current value. It is stateless and has no step of its own; it
// rides on the underlying process's step.
type Measurement struct {
	reg     *Registry
	proc    Handle
	distort Distortion
}

// NewMeasurement pairs a registered process with a distortion.
func NewMeasurement(reg *Registry, proc Handle, distort Distortion) (Measurement, error) {
	if reg == nil {
		return Measurement{}, fmt.Errorf("%w: measurement requires a registry", ErrInvalidConfig)
	}
	if err := reg.check(proc, "measured process"); err != nil {
		return Measurement{}, err
	}
	if distort == nil {
		distort = Identity
	}
	return Measurement{reg: reg, proc: proc, distort: distort}, nil
}

// Get returns the distorted current value of the measured process.
func (m Measurement) Get() float64 { return m.distort(m.reg.Value(m.proc)) }

// Identity is the distortion of a perfect sensor.
func Identity(x float64) float64 { return x }

// AddGaussNoise returns a distortion adding zero-mean normal noise with the
// given standard deviation.
func AddGaussNoise(rng *rand.Rand, sigma float64) Distortion {
	return func(x float64) float64 { return x + rng.NormFloat64()*sigma }
}

// CountJitter returns a distortion for count-valued readings: the value is
// shifted by a uniform draw from {-1, 0, 1} and floored at zero.
func CountJitter(rng *rand.Rand) Distortion {
	return func(x float64) float64 {
		return math.Max(0, x+float64(rng.Intn(3)-1))
	}
}
