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

// Package sinks implements the output collaborators of the simulator:
// console, CSV, JSONL, InfluxDB line protocol, Redis streams, and SQLite,
// plus a retrying decorator. Every sink consumes sim.Point values; the
// simulation core knows nothing about where points end up.
package sinks

import (
	"context"
	"fmt"
	"io"
	"log"

	"envsim/internal/sim"
)

// Sink extends the environment-facing write contract with Close. All sinks
// in this package are safe for use from the single run-loop goroutine;
// the file-backed ones are additionally safe for concurrent use.
type Sink interface {
	sim.Sink
	io.Closer
}

// Console logs every point. It is the live debugging sink.
type Console struct{}

func (Console) Write(_ context.Context, p sim.Point) error {
	log.Printf("%s value=%g tags=%v", p.Measurement, p.Value, p.Tags)
	return nil
}

func (Console) Close() error { return nil }

// Options carries the settings the factory may need, depending on the
// selected kind.
type Options struct {
	Path      string // csv, jsonl, sqlite
	InfluxURL string
	Token     string
	Org       string
	Bucket    string
	RedisAddr string
}

// New builds a sink from a string selector. Supported kinds:
// "console", "csv", "jsonl", "influx", "redis", "sqlite".
func New(kind string, opts Options) (Sink, error) {
	switch kind {
	case "", "console":
		return Console{}, nil
	case "csv":
		return NewCSVFile(opts.Path)
	case "jsonl":
		return NewJSONLFile(opts.Path)
	case "influx":
		return NewInflux(opts.InfluxURL, opts.Token, opts.Org, opts.Bucket)
	case "redis":
		return NewRedis(opts.RedisAddr, "ts:")
	case "sqlite":
		return NewSQLite(opts.Path)
	default:
		return nil, fmt.Errorf("unknown sink kind: %s", kind)
	}
}
