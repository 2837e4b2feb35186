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
	"fmt"
	"os"
	"sync"
	"time"

	"envsim/internal/sim"
)

// csvHeader is the annotated-CSV schema expected by the batch export: one
// float field named value and the two hardcoded tag columns every device
// must carry.
const csvHeader = "#datatype measurement,double,dateTime,tag,tag\n" +
	"m,value,time,room_id,sensor_id\n"

// CSVFile is the batch export sink. It writes the annotated header on
// creation and one row per point, buffered with periodic flushes.
type CSVFile struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewCSVFile creates (truncating) the export file at path and writes the
// schema header.
func NewCSVFile(path string) (*CSVFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &CSVFile{f: f, w: bufio.NewWriterSize(f, 1<<20), path: path, lastFlush: time.Now()}
	if _, err := s.w.WriteString(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Write appends one row. Points must carry the room_id and sensor_id tags.
func (s *CSVFile) Write(_ context.Context, p sim.Point) error {
	room, ok := p.Tags["room_id"]
	if !ok {
		return fmt.Errorf("csv sink: point %q has no room_id tag", p.Measurement)
	}
	sensor, ok := p.Tags["sensor_id"]
	if !ok {
		return fmt.Errorf("csv sink: point %q has no sensor_id tag", p.Measurement)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%s,%g,%s,%s,%s\n",
		p.Measurement, p.Value, p.Time.UTC().Format(time.RFC3339), room, sensor); err != nil {
		return err
	}
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		if err := s.w.Flush(); err != nil {
			return err
		}
		s.lastFlush = time.Now()
	}
	return nil
}

// Flush forces buffered rows to disk.
func (s *CSVFile) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the export file.
func (s *CSVFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
