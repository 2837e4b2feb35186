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

package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"envsim/internal/sim"
)

// JSONLFile appends points as JSON lines, one object per point. Useful for
// replay and debugging without a database.
type JSONLFile struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewJSONLFile opens (or creates) the log at path in append mode.
func NewJSONLFile(path string) (*JSONLFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLFile{f: f, w: bufio.NewWriterSize(f, 1<<20), path: path, lastFlush: time.Now()}, nil
}

func (s *JSONLFile) Write(_ context.Context, p sim.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.NewEncoder(s.w).Encode(jsonPoint{
		Measurement: p.Measurement,
		Value:       p.Value,
		Time:        p.Time.UnixNano(),
		Tags:        p.Tags,
	}); err != nil {
		return err
	}
	// Flush periodically to bound data loss on crash.
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		if err := s.w.Flush(); err != nil {
			return err
		}
		s.lastFlush = time.Now()
	}
	return nil
}

func (s *JSONLFile) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

func (s *JSONLFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

type jsonPoint struct {
	Measurement string            `json:"m"`
	Value       float64           `json:"value"`
	Time        int64             `json:"time"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// ReadAllJSONL reads a point log back for replay.
func ReadAllJSONL(path string) ([]sim.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []sim.Point
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var jp jsonPoint
		if err := json.Unmarshal(scanner.Bytes(), &jp); err == nil {
			out = append(out, sim.Point{
				Measurement: jp.Measurement,
				Value:       jp.Value,
				Time:        time.Unix(0, jp.Time),
				Tags:        jp.Tags,
			})
		}
	}
	return out, scanner.Err()
}
