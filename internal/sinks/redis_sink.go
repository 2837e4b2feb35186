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
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"envsim/internal/sim"
)

// StreamAppender abstracts the minimal Redis surface the sink needs.
// *redis.Client satisfies it; tests supply a fake so no server is required.
type StreamAppender interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Redis appends points to one Redis stream per measurement
// (<prefix><measurement>), carrying the value, the timestamp in unix
// nanoseconds, and the tag set as stream fields.
type Redis struct {
	client StreamAppender
	prefix string
	closer func() error
}

// NewRedis connects to addr (e.g. "127.0.0.1:6379") and returns a stream
// sink with the given stream-name prefix.
func NewRedis(addr, prefix string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis sink: address is required")
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	return &Redis{client: c, prefix: prefix, closer: c.Close}, nil
}

// NewRedisWithClient wires an existing client (or a test fake).
func NewRedisWithClient(client StreamAppender, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) Write(ctx context.Context, p sim.Point) error {
	values := make(map[string]interface{}, len(p.Tags)+2)
	values["value"] = p.Value
	values["time"] = p.Time.UnixNano()
	for k, v := range p.Tags {
		values[k] = v
	}
	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.prefix + p.Measurement,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("redis xadd %s%s: %w", s.prefix, p.Measurement, err)
	}
	return nil
}

func (s *Redis) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
