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

// Package scenario builds the smart-building simulation: room occupancy
// driven by piecewise-constant arrival/departure schedules, indoor and
// outdoor temperature, and CO2, each sampled by devices with the failure
// overlays selected in the configuration.
package scenario

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// One tick equals 10 minutes of simulated world time; the simulated day
// starts at 07:00. The default schedules below encode that day.
const TicksPerHour = 6

// Phase is one constant segment of a rate schedule: Rate holds for Length
// ticks.
type Phase struct {
	Length int     `yaml:"length"`
	Rate   float64 `yaml:"rate"`
}

// Room parameterizes one simulated room.
type Room struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Arrival and Departure are seasonal schedules for the occupancy
	// birth-death process, in people per tick.
	Arrival   []Phase `yaml:"arrival"`
	Departure []Phase `yaml:"departure"`
	// CO2PerPerson is the CO2 increase per person per tick (ppm). Zero
	// selects the default of 10 ppm per hour.
	CO2PerPerson float64 `yaml:"co2_per_person,omitempty"`
}

// Config is the full scenario configuration.
type Config struct {
	// Tick is the wall-clock pacing of the live loop.
	Tick time.Duration `yaml:"tick"`
	// KillAfter, when positive, wraps the first indoor temperature sensor
	// of every room so it dies after that many ticks.
	KillAfter int `yaml:"kill_after,omitempty"`
	// StuckAfter, when positive, wraps the second indoor temperature
	// sensor of every room so it freezes after that many ticks.
	StuckAfter int `yaml:"stuck_after,omitempty"`
	// CO2Alternate switches the ambient CO2 drift from a slow decay to a
	// strong increase, for exercising threshold alerts.
	CO2Alternate bool `yaml:"co2_alternate,omitempty"`
	// OutsideTemperature adds the outdoor sensor (room 0).
	OutsideTemperature bool   `yaml:"outside_temperature,omitempty"`
	Rooms              []Room `yaml:"rooms"`
}

// Default returns the three-room configuration of the original lab:
// two lecture rooms and a dining room, each with a day-shaped arrival and
// departure schedule.
func Default() Config {
	return Config{
		Tick: time.Second,
		Rooms: []Room{
			{
				ID:        "1",
				Name:      "Lecture Room A",
				Arrival:   phases([]int{6, 24, 24, 90}, []float64{2, 40, 30, 2}),
				Departure: phases([]int{12, 24, 24, 84}, []float64{2, 40, 90, 40}),
			},
			{
				ID:        "2",
				Name:      "Lecture Room B",
				Arrival:   phases([]int{6, 24, 24, 90}, []float64{1, 20, 15, 1}),
				Departure: phases([]int{12, 24, 24, 84}, []float64{1, 20, 15, 1}),
			},
			{
				ID:        "3",
				Name:      "Dining Room",
				Arrival:   phases([]int{18, 12, 12, 24, 78}, []float64{2, 30, 80, 30, 2}),
				Departure: phases([]int{24, 12, 12, 24, 70}, []float64{2, 30, 80, 30, 2}),
			},
		},
	}
}

func phases(lengths []int, rates []float64) []Phase {
	out := make([]Phase, len(lengths))
	for i := range lengths {
		out[i] = Phase{Length: lengths[i], Rate: rates[i]}
	}
	return out
}

// Load reads a YAML scenario file. Fields absent from the file keep the
// defaults; an empty path returns the default configuration unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the process constructors would accept
// only by accident: empty schedules, negative rates, duplicate room ids.
func (c Config) Validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("scenario: tick duration must be positive, got %v", c.Tick)
	}
	if len(c.Rooms) == 0 {
		return fmt.Errorf("scenario: at least one room is required")
	}
	seen := make(map[string]bool, len(c.Rooms))
	for _, r := range c.Rooms {
		if r.ID == "" {
			return fmt.Errorf("scenario: room %q has no id", r.Name)
		}
		if seen[r.ID] {
			return fmt.Errorf("scenario: duplicate room id %q", r.ID)
		}
		seen[r.ID] = true
		for name, sched := range map[string][]Phase{"arrival": r.Arrival, "departure": r.Departure} {
			if len(sched) == 0 {
				return fmt.Errorf("scenario: room %s has an empty %s schedule", r.ID, name)
			}
			for i, ph := range sched {
				if ph.Length <= 0 {
					return fmt.Errorf("scenario: room %s %s phase %d has non-positive length %d", r.ID, name, i, ph.Length)
				}
				if ph.Rate < 0 {
					return fmt.Errorf("scenario: room %s %s phase %d has negative rate %g", r.ID, name, i, ph.Rate)
				}
			}
		}
		if r.CO2PerPerson < 0 {
			return fmt.Errorf("scenario: room %s has negative co2_per_person", r.ID)
		}
	}
	return nil
}

// SinkSettings are the connection settings of the external sinks, taken
// from the environment so credentials stay out of scenario files.
type SinkSettings struct {
	InfluxURL    string `env:"INFLUX_URL" envDefault:"http://localhost:8086"`
	InfluxToken  string `env:"INFLUX_TOKEN"`
	InfluxOrg    string `env:"INFLUX_ORG" envDefault:"smart-uni"`
	InfluxBucket string `env:"INFLUX_BUCKET" envDefault:"smart_uni"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
}

// LoadSinkSettings parses the sink settings from environment variables.
func LoadSinkSettings() (SinkSettings, error) {
	var s SinkSettings
	if err := env.Parse(&s); err != nil {
		return SinkSettings{}, fmt.Errorf("sink settings: %w", err)
	}
	return s, nil
}
