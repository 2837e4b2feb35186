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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"

	"envsim/internal/sim"
)

func testPoint(meas string, v float64) sim.Point {
	return sim.Point{
		Measurement: meas,
		Value:       v,
		Time:        time.Unix(1700000000, 0),
		Tags:        map[string]string{"room_id": "1", "sensor_id": "2"},
	}
}

func TestCSVFileHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	s, err := NewCSVFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Write(ctx, testPoint("temperature", 21.5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, testPoint("co2", 612)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(lines), lines)
	}
	if lines[0] != "#datatype measurement,double,dateTime,tag,tag" {
		t.Fatalf("bad datatype header: %q", lines[0])
	}
	if lines[1] != "m,value,time,room_id,sensor_id" {
		t.Fatalf("bad schema header: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "temperature,21.5,") || !strings.HasSuffix(lines[2], ",1,2") {
		t.Fatalf("bad row: %q", lines[2])
	}
}

func TestCSVFileRequiresHardcodedTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	s, err := NewCSVFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	p := testPoint("temperature", 1)
	p.Tags = map[string]string{"sensor_id": "2"}
	if err := s.Write(context.Background(), p); err == nil {
		t.Fatal("expected an error for a point without room_id")
	}
}

func TestJSONLFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.log")
	s, err := NewJSONLFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := testPoint("n_people", 12)
	if err := s.Write(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAllJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d points, want 1", len(got))
	}
	p := got[0]
	if p.Measurement != "n_people" || p.Value != 12 || !p.Time.Equal(want.Time) || p.Tags["room_id"] != "1" {
		t.Fatalf("round trip mismatch: %+v", p)
	}
}

// flakySink fails the first n writes.
type flakySink struct {
	failures int
	writes   int
}

func (f *flakySink) Write(context.Context, sim.Point) error {
	f.writes++
	if f.writes <= f.failures {
		return errors.New("transient")
	}
	return nil
}

func (f *flakySink) Close() error { return nil }

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &flakySink{failures: 2}
	r := NewRetry(inner, RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	var retries int
	r.OnRetry = func(int, error) { retries++ }
	if err := r.Write(context.Background(), testPoint("temperature", 1)); err != nil {
		t.Fatalf("write should have recovered: %v", err)
	}
	if inner.writes != 3 {
		t.Fatalf("inner saw %d writes, want 3", inner.writes)
	}
	if retries != 2 {
		t.Fatalf("retry hook fired %d times, want 2", retries)
	}
}

func TestRetryGivesUpAfterBoundedAttempts(t *testing.T) {
	inner := &flakySink{failures: 100}
	r := NewRetry(inner, RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	if err := r.Write(context.Background(), testPoint("temperature", 1)); err == nil {
		t.Fatal("expected the final error to surface")
	}
	if inner.writes != 3 {
		t.Fatalf("inner saw %d writes, want 3 (1 + 2 retries)", inner.writes)
	}
}

// fakeStreamAppender records XAdd calls.
type fakeStreamAppender struct {
	streams []string
	values  []map[string]interface{}
	err     error
}

func (f *fakeStreamAppender) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	f.streams = append(f.streams, a.Stream)
	f.values = append(f.values, a.Values.(map[string]interface{}))
	return redis.NewStringResult("1-1", nil)
}

func TestRedisSinkAppendsToMeasurementStream(t *testing.T) {
	fake := &fakeStreamAppender{}
	s := NewRedisWithClient(fake, "ts:")
	p := testPoint("co2", 640)
	if err := s.Write(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if len(fake.streams) != 1 || fake.streams[0] != "ts:co2" {
		t.Fatalf("streams: %v", fake.streams)
	}
	v := fake.values[0]
	if v["value"] != 640.0 || v["room_id"] != "1" || v["time"] != p.Time.UnixNano() {
		t.Fatalf("stream fields: %v", v)
	}

	fake.err = errors.New("down")
	if err := s.Write(context.Background(), p); err == nil {
		t.Fatal("expected the client error to surface")
	}
}

func TestSQLiteSinkStoresPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Write(ctx, testPoint("temperature", float64(20+i))); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Count(ctx, "temperature", time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("stored %d points, want 5", n)
	}
}

func TestFactorySelectors(t *testing.T) {
	if _, err := New("bogus", Options{}); err == nil {
		t.Fatal("unknown selector must fail")
	}
	s, err := New("", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(Console); !ok {
		t.Fatalf("default sink is %T, want Console", s)
	}
	c, err := New("csv", Options{Path: filepath.Join(t.TempDir(), "x.csv")})
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
}

func TestLineProtocolFormat(t *testing.T) {
	p := sim.Point{
		Measurement: "room temp",
		Value:       21.5,
		Time:        time.Unix(0, 12345),
		Tags:        map[string]string{"room_id": "1", "sensor_id": "a b"},
	}
	got := lineProtocol(p)
	want := `room\ temp,room_id=1,sensor_id=a\ b value=21.5 12345`
	if got != want {
		t.Fatalf("line protocol:\n got %q\nwant %q", got, want)
	}
}
