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

package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"envsim/internal/scenario"
	"envsim/internal/sim"
	"envsim/internal/sinks"
	"envsim/internal/telemetry"
)

func main() {
	// Overview:
	//   envsim simulates a small building's sensor telemetry: per-room
	//   occupancy (a birth-death process driven by piecewise-constant
	//   arrival/departure schedules), indoor temperature, and CO2, sampled
	//   by devices that overlay dropout, death, and stuck-sensor failure
	//   modes, and emitted to a pluggable sink every tick.
	//
	// Usage (quick start):
	//   go run ./cmd/envsim -dt 1s -sink console
	//   go run ./cmd/envsim -sink influx            # settings via INFLUX_* env vars
	//   go run ./cmd/envsim -sink csv -out day.csv -steps 144
	//   - Observe metrics at GET /metrics (Prometheus exposition).
	//   - -kill_after / -stuck_after wrap the per-room temperature sensors
	//     with the corresponding failure overlay.
	//   - -co2 switches the ambient CO2 drift to a strong rise, for
	//     exercising threshold alerts against the webhook receiver.
	//
	// Live mode runs until SIGINT/SIGTERM; -steps N instead generates N
	// ticks in batch mode (no pacing) and exits.
	var (
		dt         = flag.Duration("dt", 0, "tick duration; 0 uses the scenario file's value")
		scenarioF  = flag.String("scenario", "", "scenario YAML; empty uses the built-in three-room building")
		co2Alt     = flag.Bool("co2", false, "use the alternate CO2 scenario (strong ambient rise)")
		killAfter  = flag.Int("kill_after", 0, "kill the first indoor temperature sensor of each room after N ticks")
		stuckAfter = flag.Int("stuck_after", 0, "freeze the second indoor temperature sensor of each room after N ticks")
		outside    = flag.Bool("outside", false, "add the outdoor temperature sensor (room 0)")
		sinkKind   = flag.String("sink", "console", "sink: console, csv, jsonl, influx, redis, sqlite")
		outPath    = flag.String("out", "envsim_gen.csv", "output path for file-backed sinks")
		steps      = flag.Int("steps", 0, "generate N ticks in batch mode instead of running live")
		httpAddr   = flag.String("http", ":2112", "HTTP listen address for /metrics; empty disables")
		seed       = flag.Int64("seed", 0, "random seed; 0 seeds from the clock")
	)
	flag.Parse()

	cfg, err := scenario.Load(*scenarioF)
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}
	if *dt > 0 {
		cfg.Tick = *dt
	}
	if *co2Alt {
		cfg.CO2Alternate = true
	}
	if *killAfter > 0 {
		cfg.KillAfter = *killAfter
	}
	if *stuckAfter > 0 {
		cfg.StuckAfter = *stuckAfter
	}
	if *outside {
		cfg.OutsideTemperature = true
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	env := sim.NewEnvironment()
	if err := scenario.Build(env, cfg, rng); err != nil {
		log.Fatalf("build scenario: %v", err)
	}

	settings, err := scenario.LoadSinkSettings()
	if err != nil {
		log.Fatalf("sink settings: %v", err)
	}
	base, err := sinks.New(*sinkKind, sinks.Options{
		Path:      *outPath,
		InfluxURL: settings.InfluxURL,
		Token:     settings.InfluxToken,
		Org:       settings.InfluxOrg,
		Bucket:    settings.InfluxBucket,
		RedisAddr: settings.RedisAddr,
	})
	if err != nil {
		log.Fatalf("sink: %v", err)
	}

	metrics := telemetry.New(prometheus.DefaultRegisterer)
	env.Hooks = metrics.Hooks()

	retrying := sinks.NewRetry(base, sinks.DefaultRetryConfig)
	retrying.OnRetry = func(int, error) { metrics.SinkRetries.Inc() }
	sink := metrics.Instrument(retrying)
	defer sink.Close()

	if *httpAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("envsim metrics listening on %s", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, nil); err != nil {
				log.Fatalf("http: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *steps > 0 {
		log.Printf("generating %d ticks (dt=%v) into %s sink", *steps, cfg.Tick, *sinkKind)
		if err := env.Generate(ctx, *steps, cfg.Tick, sink); err != nil {
			log.Fatalf("generate: %v", err)
		}
		return
	}

	log.Printf("simulating %d rooms, %d devices, tick=%v, sink=%s (seed %d)",
		len(cfg.Rooms), len(env.Devices()), cfg.Tick, *sinkKind, *seed)
	if err := env.Run(ctx, cfg.Tick, sink); err != nil && ctx.Err() == nil {
		log.Fatalf("run: %v", err)
	}
	log.Printf("shutting down")
}
