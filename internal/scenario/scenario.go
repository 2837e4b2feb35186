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

package scenario

import (
	"fmt"
	"math/rand"

	"envsim/internal/sim"
)

const (
	defaultCO2PerPerson = 10.0 / TicksPerHour
	co2DecayPerTick     = -0.1
	co2AlternateRise    = 10.0
	ambientCO2          = 600
)

// builder accumulates processes into the environment and short-circuits on
// the first construction error, so room wiring reads as a schedule rather
// than as error plumbing.
type builder struct {
	env *sim.Environment
	rng *rand.Rand
	err error
}

func (b *builder) add(p sim.Process, err error) sim.Handle {
	if b.err != nil {
		return 0
	}
	if err != nil {
		b.err = err
		return 0
	}
	return b.env.AddProcess(p)
}

func (b *builder) measurement(h sim.Handle, d sim.Distortion) sim.Measurement {
	if b.err != nil {
		return sim.Measurement{}
	}
	m, err := sim.NewMeasurement(b.env.Processes(), h, d)
	if err != nil {
		b.err = err
	}
	return m
}

func (b *builder) device(d sim.Device, err error) sim.Device {
	if b.err != nil {
		return nil
	}
	if err != nil {
		b.err = err
		return nil
	}
	return d
}

// Build wires the configured rooms (and optionally the outdoor sensor)
// into env. All randomness flows from rng.
func Build(env *sim.Environment, cfg Config, rng *rand.Rand) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b := &builder{env: env, rng: rng}
	if cfg.OutsideTemperature {
		b.outsideTemperature()
	}
	for _, room := range cfg.Rooms {
		b.room(room, cfg)
	}
	return b.err
}

// room adds the occupancy, indoor temperature, and CO2 chains of one room,
// with three temperature-ish sensors and the configured failure overlays.
func (b *builder) room(room Room, cfg Config) {
	reg := b.env.Processes()

	// Occupancy: birth-death with seasonal arrival and departure schedules.
	arrival := b.add(b.pwConstant(room.Arrival, true))
	departure := b.add(b.pwConstant(room.Departure, true))
	var people sim.Handle
	if b.err == nil {
		p, err := sim.NewBirthDeath(b.rng, reg, arrival, departure, 0, 0)
		people = b.add(p, err)
	}
	b.addDevice(b.device(b.basicDevice("people", people, sim.CountJitter(b.rng), "n_people", room.ID, "0")))

	// Indoor temperature: slow daily mean drift plus an integrated noise
	// walk, shared by two sensors.
	tempMeanRate := b.add(sim.NewPwConstant(
		[]int{6 * TicksPerHour, 6 * TicksPerHour, 12 * TicksPerHour},
		[]float64{0.2 / TicksPerHour, 0, -0.1 / TicksPerHour}, true))
	tempMean := b.add(b.integrated(tempMeanRate, 22.0))
	tempNoise := b.add(b.integratedGauss(0, 0.5/TicksPerHour, 0))
	var temp sim.Handle
	if b.err == nil {
		p, err := sim.NewSum(reg, tempMean, tempNoise)
		temp = b.add(p, err)
	}

	temp1 := b.device(b.basicDevice("temp1", temp, sim.AddGaussNoise(b.rng, 0.5), "temperature", room.ID, "1"))
	if cfg.KillAfter > 0 && b.err == nil {
		temp1 = b.device(sim.NewDoomedDevice("temp1", temp1, cfg.KillAfter))
	}
	b.addDevice(temp1)

	temp2 := b.device(b.basicDevice("temp2", temp, sim.AddGaussNoise(b.rng, 0.5), "temperature", room.ID, "2"))
	if cfg.StuckAfter > 0 && b.err == nil {
		temp2 = b.device(sim.NewStickyDevice("temp2", temp2, cfg.StuckAfter))
	}
	b.addDevice(temp2)

	// CO2: ambient drift plus emission proportional to occupancy.
	perPerson := room.CO2PerPerson
	if perPerson == 0 {
		perPerson = defaultCO2PerPerson
	}
	meanIncrease := co2DecayPerTick
	if cfg.CO2Alternate {
		meanIncrease = co2AlternateRise
	}
	var emission sim.Handle
	if b.err == nil {
		p, err := sim.NewTransformed(reg, people, func(x float64) float64 { return perPerson * x })
		emission = b.add(p, err)
	}
	ambient := b.add(b.integratedGauss(meanIncrease, 1.0, ambientCO2))
	var co2 sim.Handle
	if b.err == nil {
		p, err := sim.NewSum(reg, ambient, emission)
		co2 = b.add(p, err)
	}
	b.addDevice(b.device(b.basicDevice("co2", co2, sim.AddGaussNoise(b.rng, 10), "co2", room.ID, "3")))
}

// outsideTemperature adds the outdoor sensor, tagged as room 0.
func (b *builder) outsideTemperature() {
	reg := b.env.Processes()
	meanRate := b.add(sim.NewPwConstant(
		[]int{8 * TicksPerHour, 4 * TicksPerHour, 12 * TicksPerHour},
		[]float64{1.5 / TicksPerHour, 0, -1.2 / TicksPerHour}, true))
	mean := b.add(b.integrated(meanRate, 8.0))
	noise := b.add(b.integratedGauss(0, 1.0/TicksPerHour, 0))
	var temp sim.Handle
	if b.err == nil {
		p, err := sim.NewSum(reg, mean, noise)
		temp = b.add(p, err)
	}
	b.addDevice(b.device(b.basicDevice("temp0", temp, sim.Identity, "temperature", "0", "0")))
}

func (b *builder) pwConstant(sched []Phase, seasonal bool) (sim.Process, error) {
	lengths := make([]int, len(sched))
	rates := make([]float64, len(sched))
	for i, ph := range sched {
		lengths[i] = ph.Length
		rates[i] = ph.Rate
	}
	return sim.NewPwConstant(lengths, rates, seasonal)
}

func (b *builder) integrated(base sim.Handle, offset float64) (sim.Process, error) {
	if b.err != nil {
		return nil, b.err
	}
	return sim.NewIntegrated(b.env.Processes(), base, offset)
}

// integratedGauss registers a gaussian rate process and returns its
// integral — the random-walk building block used by temperature and CO2.
func (b *builder) integratedGauss(mean, std, offset float64) (sim.Process, error) {
	if b.err != nil {
		return nil, b.err
	}
	g, err := sim.NewGaussianNoise(b.rng, mean, std)
	if err != nil {
		return nil, err
	}
	h := b.env.AddProcess(g)
	return sim.NewIntegrated(b.env.Processes(), h, offset)
}

func (b *builder) basicDevice(name string, proc sim.Handle, distort sim.Distortion, meas, roomID, sensorID string) (sim.Device, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := b.measurement(proc, distort)
	if b.err != nil {
		return nil, b.err
	}
	return sim.NewBasicDevice(b.rng, fmt.Sprintf("%s-r%s", name, roomID), m, 0,
		meas, map[string]string{"room_id": roomID, "sensor_id": sensorID})
}

func (b *builder) addDevice(d sim.Device) {
	if b.err != nil || d == nil {
		return
	}
	b.env.AddDevice(d)
}
