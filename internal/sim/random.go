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
	"math"
	"math/rand"
)

// Every stochastic process and device takes an explicit *rand.Rand at
// construction. Tests pass fixed seeds for deterministic runs; the live
// simulator seeds from the wall clock.

// poisson draws from a Poisson distribution with the given rate.
// Knuth's product method is exact and fast for small lambda; above the
// cutoff a rounded normal approximation is used, which is accurate to well
// under one count at the rates a building scenario produces.
func poisson(rng *rand.Rand, lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	if lambda > 30 {
		n := math.Round(lambda + math.Sqrt(lambda)*rng.NormFloat64())
		if n < 0 {
			return 0
		}
		return int64(n)
	}
	l := math.Exp(-lambda)
	var k int64
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

// bernoulli reports true with probability p.
func bernoulli(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}
